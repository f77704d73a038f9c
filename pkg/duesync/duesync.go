// Package duesync keeps a project's derived milestones in step with the due
// dates of its tasks.
//
// Reconciliation is a keyed upsert on the source task id. Running it twice
// with no task changes in between is a no-op, so concurrent or repeated
// triggers never produce duplicates.
package duesync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
)

// Synchronizer reconciles derived milestones against tasks.
type Synchronizer struct {
	Store store.Store
	Tasks milestone.TaskSource
	Log   *log.Logger
}

// Result summarizes one reconciliation.
type Result struct {
	ProjectID  string
	Created    int
	Updated    int
	Removed    int
	Milestones []milestone.Milestone
}

// Changed reports whether the run wrote anything.
func (r Result) Changed() bool {
	return r.Created+r.Updated+r.Removed > 0
}

// Synchronize reconciles projectID and returns its refreshed milestones.
func (s *Synchronizer) Synchronize(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	res, err := s.SynchronizeWithResult(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return res.Milestones, nil
}

// SynchronizeWithResult is Synchronize with per-run counts. The first failing
// store call aborts the run; writes already made stay and a re-run finishes
// the job.
func (s *Synchronizer) SynchronizeWithResult(ctx context.Context, projectID string) (Result, error) {
	res := Result{ProjectID: projectID}

	tasks, err := s.Tasks.TasksOf(ctx, projectID)
	if err != nil {
		return res, fmt.Errorf("duesync: list tasks: %w", err)
	}
	existing, err := s.Store.List(ctx, projectID)
	if err != nil {
		return res, fmt.Errorf("duesync: list milestones: %w", err)
	}

	due := make(map[string]milestone.Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if !t.HasDue() {
			continue
		}
		if _, dup := due[t.ID]; !dup {
			order = append(order, t.ID)
		}
		due[t.ID] = t
	}

	derived, extras := indexDerived(existing)

	for _, m := range extras {
		if err := s.Store.Remove(ctx, m.ID); err != nil {
			return res, fmt.Errorf("duesync: remove duplicate %s: %w", m.ID, err)
		}
		res.Removed++
	}

	for _, id := range order {
		t := due[id]
		if m, ok := derived[id]; ok {
			p, changed := patchFor(m, t)
			if !changed {
				continue
			}
			if _, err := s.Store.Update(ctx, m.ID, p); err != nil {
				return res, fmt.Errorf("duesync: update %s: %w", m.ID, err)
			}
			res.Updated++
			continue
		}
		_, err := s.Store.Create(ctx, projectID, milestone.Draft{
			Title:        milestone.DerivedTitle(t.Title),
			DueDate:      *t.DueDate,
			Kind:         milestone.KindTaskDue,
			SourceTaskID: t.ID,
			Completed:    t.Completed,
		})
		if err != nil {
			return res, fmt.Errorf("duesync: create for task %s: %w", t.ID, err)
		}
		res.Created++
	}

	stale := make([]string, 0)
	for taskID := range derived {
		if _, ok := due[taskID]; !ok {
			stale = append(stale, taskID)
		}
	}
	sort.Strings(stale)
	for _, taskID := range stale {
		m := derived[taskID]
		if err := s.Store.Remove(ctx, m.ID); err != nil {
			return res, fmt.Errorf("duesync: remove %s: %w", m.ID, err)
		}
		res.Removed++
	}

	res.Milestones, err = s.Store.List(ctx, projectID)
	if err != nil {
		return res, fmt.Errorf("duesync: refresh: %w", err)
	}

	s.logger().WithFields(log.Fields{
		"project": projectID,
		"created": res.Created,
		"updated": res.Updated,
		"removed": res.Removed,
	}).Debug("duesync.synchronize")
	return res, nil
}

func (s *Synchronizer) logger() *log.Logger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

// indexDerived maps each source task to its derived milestone. When a task
// has more than one, the earliest by (dueDate, position) wins and the rest are
// returned as extras.
func indexDerived(existing []milestone.Milestone) (map[string]milestone.Milestone, []milestone.Milestone) {
	byTask := make(map[string]milestone.Milestone)
	var extras []milestone.Milestone
	for _, m := range existing {
		if m.Kind != milestone.KindTaskDue || m.SourceTaskID == "" {
			continue
		}
		kept, ok := byTask[m.SourceTaskID]
		switch {
		case !ok:
			byTask[m.SourceTaskID] = m
		case milestone.Less(m, kept):
			extras = append(extras, kept)
			byTask[m.SourceTaskID] = m
		default:
			extras = append(extras, m)
		}
	}
	return byTask, extras
}

// patchFor returns the patch that brings m in line with t.
func patchFor(m milestone.Milestone, t milestone.Task) (milestone.Patch, bool) {
	var p milestone.Patch
	if !m.DueDate.Equal(*t.DueDate) {
		d := *t.DueDate
		p.DueDate = &d
	}
	if m.Completed != t.Completed {
		done := t.Completed
		p.Completed = &done
	}
	if title := strings.TrimSpace(milestone.DerivedTitle(t.Title)); m.Title != title {
		p.Title = &title
	}
	return p, !p.Empty()
}
