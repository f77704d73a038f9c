package app

import (
	"context"
	"sort"

	"tableflip.dev/pomo/pkg/milestone"
)

// ReportItem is a milestone that was completed, or is overdue, in the window.
type ReportItem struct {
	Milestone milestone.Milestone `json:"milestone"`
	Overdue   bool                `json:"overdue"`
}

// ReportSection groups report items by project.
type ReportSection struct {
	ProjectID string       `json:"projectId"`
	Items     []ReportItem `json:"items"`
}

// ReportResult is a completed-milestones report for a window of days.
type ReportResult struct {
	Since     milestone.Date  `json:"since"`
	Until     milestone.Date  `json:"until"`
	Sections  []ReportSection `json:"sections"`
	Completed int             `json:"completed"`
	Overdue   int             `json:"overdue"`
}

// Report returns the milestones completed between since and until (inclusive)
// for the given projects, plus open milestones whose due date passed before
// today. Projects with nothing to report are left out.
func (s *Service) Report(ctx context.Context, projectIDs []string, since, until milestone.Date) (ReportResult, error) {
	if until.Before(since) {
		since, until = until, since
	}
	today := s.Today()
	res := ReportResult{Since: since, Until: until}

	ids := append([]string(nil), projectIDs...)
	sort.Strings(ids)
	for _, projectID := range ids {
		ms, err := s.Milestones(ctx, projectID)
		if err != nil {
			return ReportResult{}, err
		}
		var items []ReportItem
		for _, m := range ms {
			switch {
			case m.Completed && m.CompletedDate != nil:
				if m.CompletedDate.Before(since) || m.CompletedDate.After(until) {
					continue
				}
				items = append(items, ReportItem{Milestone: m})
				res.Completed++
			case !m.Completed && m.DueDate.Before(today):
				items = append(items, ReportItem{Milestone: m, Overdue: true})
				res.Overdue++
			}
		}
		if len(items) == 0 {
			continue
		}
		res.Sections = append(res.Sections, ReportSection{ProjectID: projectID, Items: items})
	}
	return res, nil
}
