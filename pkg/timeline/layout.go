// Package timeline lays milestones out along a date axis. Layout is pure: the
// same input always produces the same RenderModel.
package timeline

import (
	"math"

	"tableflip.dev/pomo/pkg/milestone"
)

// DeadlineTitle is the title of the synthesized deadline marker.
const DeadlineTitle = "Deadline"

// Item is one milestone placed on the axis.
type Item struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId,omitempty"`
	DueDate   milestone.Date `json:"dueDate"`
	Position  float64        `json:"position"`
	IsTop     bool           `json:"isTop"`
	ZIndex    int            `json:"zIndex"`
	Kind      milestone.Kind `json:"kind"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
}

// TodayMarker is the position of the current day.
type TodayMarker struct {
	Date     milestone.Date `json:"date"`
	Position float64        `json:"position"`
	IsTop    bool           `json:"isTop"`
}

// RenderModel is everything needed to draw the timeline.
type RenderModel struct {
	Items []Item      `json:"items"`
	Today TodayMarker `json:"today"`
	Range Range       `json:"range"`
}

// Deadline returns the deadline item, if any.
func (m RenderModel) Deadline() (Item, bool) {
	for _, it := range m.Items {
		if it.Kind == milestone.KindDeadline {
			return it, true
		}
	}
	return Item{}, false
}

// Layout places milestones, the optional project deadline and today on a
// shared axis.
func Layout(ms []milestone.Milestone, deadline *milestone.Date, today milestone.Date) RenderModel {
	all := withDeadline(ms, deadline)
	all = dedupe(all)
	milestone.Sort(all)

	dates := make([]milestone.Date, 0, len(all))
	for _, m := range all {
		dates = append(dates, m.DueDate)
	}
	r := NewRange(today, dates...)

	items := make([]Item, len(all))
	for i, m := range all {
		items[i] = Item{
			ID:        m.ID,
			ProjectID: m.ProjectID,
			DueDate:   m.DueDate,
			Position:  r.Position(m.DueDate),
			IsTop:     i%2 == 0,
			ZIndex:    len(all) - i,
			Kind:      m.Kind.OrDefault(),
			Title:     m.Title,
			Completed: m.Completed,
		}
	}

	for i := range items {
		if items[i].Kind != milestone.KindDeadline {
			continue
		}
		if j, ok := nearest(items, items[i].Position, i); ok {
			items[i].IsTop = !items[j].IsTop
		}
	}

	marker := TodayMarker{Date: today, Position: r.Position(today), IsTop: true}
	if j, ok := nearest(items, marker.Position, -1); ok {
		marker.IsTop = !items[j].IsTop
	}

	return RenderModel{Items: items, Today: marker, Range: r}
}

func withDeadline(ms []milestone.Milestone, deadline *milestone.Date) []milestone.Milestone {
	out := make([]milestone.Milestone, 0, len(ms)+1)
	out = append(out, ms...)
	if deadline == nil || deadline.IsZero() {
		return out
	}
	projectID := ""
	for _, m := range ms {
		if m.Kind == milestone.KindDeadline {
			return out
		}
		if projectID == "" {
			projectID = m.ProjectID
		}
	}
	return append(out, milestone.Milestone{
		ID:        "deadline",
		ProjectID: projectID,
		Title:     DeadlineTitle,
		DueDate:   *deadline,
		Kind:      milestone.KindDeadline,
		Position:  math.MaxInt32,
	})
}

// dedupe keeps the first milestone seen for every identity key.
func dedupe(ms []milestone.Milestone) []milestone.Milestone {
	seen := make(map[string]struct{}, len(ms))
	out := ms[:0]
	for _, m := range ms {
		k := m.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// nearest finds the item closest to pos within ProximityThreshold, skipping
// index skip. Ties go to the earlier item.
func nearest(items []Item, pos float64, skip int) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for j, it := range items {
		if j == skip {
			continue
		}
		d := math.Abs(it.Position - pos)
		if d <= ProximityThreshold && d < bestDist {
			best, bestDist = j, d
		}
	}
	return best, best >= 0
}
