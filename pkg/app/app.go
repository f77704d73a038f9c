// Package app is the orchestration layer shared by the CLI and the server. It
// ties the milestone store, the due-date synchronizer, the timeline layout and
// the change bus together.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/duesync"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
	"tableflip.dev/pomo/pkg/timeline"
)

// Service provides high-level milestone operations. Store is required; the
// other fields fall back to defaults when nil.
type Service struct {
	Store    store.Store
	Tasks    milestone.TaskSource
	Projects milestone.ProjectSource
	Bus      *bus.Bus
	Now      func() time.Time
	Log      *log.Logger

	inflight singleflight.Group
}

var errNoStore = errors.New("app: no store configured")

func (s *Service) bus() *bus.Bus {
	if s.Bus == nil {
		return bus.Default()
	}
	return s.Bus
}

// Events is the bus the service publishes on.
func (s *Service) Events() *bus.Bus {
	return s.bus()
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) logger() *log.Logger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

// Today is the current calendar day as seen by the service clock.
func (s *Service) Today() milestone.Date {
	return milestone.DateOf(s.now())
}

// Milestones lists a project's milestones in (dueDate, position) order.
func (s *Service) Milestones(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	if s.Store == nil {
		return nil, errNoStore
	}
	return s.Store.List(ctx, projectID)
}

// AddMilestone creates a user milestone.
func (s *Service) AddMilestone(ctx context.Context, projectID, title string, due milestone.Date) (milestone.Milestone, error) {
	if s.Store == nil {
		return milestone.Milestone{}, errNoStore
	}
	m, err := s.Store.Create(ctx, projectID, milestone.Draft{Title: title, DueDate: due, Kind: milestone.KindUser})
	if err != nil {
		return milestone.Milestone{}, err
	}
	s.changed(ctx, projectID, m)
	return m, nil
}

// DeleteMilestone removes a user milestone. Derived milestones only go away
// when their task loses its due date, so deleting one is forbidden.
func (s *Service) DeleteMilestone(ctx context.Context, id string) error {
	m, err := s.mutable(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Remove(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, m.ProjectID, m)
	return nil
}

// EditMilestone applies a patch to a user milestone.
func (s *Service) EditMilestone(ctx context.Context, id string, p milestone.Patch) (milestone.Milestone, error) {
	if _, err := s.mutable(ctx, id); err != nil {
		return milestone.Milestone{}, err
	}
	if p.Empty() {
		return milestone.Milestone{}, fmt.Errorf("%w: nothing to change", milestone.ErrValidation)
	}
	m, err := s.Store.Update(ctx, id, p)
	if err != nil {
		return milestone.Milestone{}, err
	}
	s.changed(ctx, m.ProjectID, m)
	return m, nil
}

// CompleteMilestone marks a user milestone done or reopens it.
func (s *Service) CompleteMilestone(ctx context.Context, id string, done bool) (milestone.Milestone, error) {
	return s.EditMilestone(ctx, id, milestone.Patch{Completed: &done})
}

func (s *Service) mutable(ctx context.Context, id string) (milestone.Milestone, error) {
	if s.Store == nil {
		return milestone.Milestone{}, errNoStore
	}
	m, err := s.Store.Get(ctx, id)
	if err != nil {
		return milestone.Milestone{}, err
	}
	if m.Derived() {
		return m, fmt.Errorf("%w: %q follows the due date of task %s", milestone.ErrForbidden, m.Title, m.SourceTaskID)
	}
	return m, nil
}

// Deadline returns the project's deadline, or nil when it has none or the
// project is unknown.
func (s *Service) Deadline(ctx context.Context, projectID string) (*milestone.Date, error) {
	if s.Projects == nil {
		return nil, nil
	}
	p, err := s.Projects.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, milestone.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p.Deadline, nil
}

// RenderModel lays out the project's current milestones, its deadline and
// today.
func (s *Service) RenderModel(ctx context.Context, projectID string) (timeline.RenderModel, error) {
	ms, err := s.Milestones(ctx, projectID)
	if err != nil {
		return timeline.RenderModel{}, err
	}
	deadline, err := s.Deadline(ctx, projectID)
	if err != nil {
		return timeline.RenderModel{}, err
	}
	return timeline.Layout(ms, deadline, s.Today()), nil
}

// Synchronize reconciles the project's derived milestones and announces the
// result. A call made while a run is in flight for the same project waits for
// it and then runs once more, so its own task changes are always seen.
func (s *Service) Synchronize(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	res, err := s.SynchronizeWithResult(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return res.Milestones, nil
}

// SynchronizeWithResult is Synchronize with the per-run counts.
func (s *Service) SynchronizeWithResult(ctx context.Context, projectID string) (duesync.Result, error) {
	if s.Store == nil {
		return duesync.Result{}, errNoStore
	}
	if s.Tasks == nil {
		return duesync.Result{}, errors.New("app: no task source configured")
	}
	res, led, err := s.synchronizeOnce(ctx, projectID)
	if led {
		return res, err
	}
	// The joined run may have read tasks before this caller's change. Any run
	// started from here on reads them after it, so one more round is enough.
	res, _, err = s.synchronizeOnce(ctx, projectID)
	return res, err
}

// synchronizeOnce runs the synchronizer or joins the run already in flight
// for the project. led reports whether this caller started the run.
func (s *Service) synchronizeOnce(ctx context.Context, projectID string) (res duesync.Result, led bool, err error) {
	v, err, _ := s.inflight.Do(projectID, func() (any, error) {
		led = true
		syncer := &duesync.Synchronizer{Store: s.Store, Tasks: s.Tasks, Log: s.logger()}
		res, err := syncer.SynchronizeWithResult(ctx, projectID)
		if err != nil {
			return res, err
		}
		s.changed(ctx, projectID, res.Milestones)
		return res, nil
	})
	res, _ = v.(duesync.Result)
	return res, led, err
}

// Attach subscribes the service to task changes so derived milestones follow
// them. Call the returned func to detach.
func (s *Service) Attach() (detach func()) {
	return s.bus().Subscribe(bus.TasksChanged, func(ctx context.Context, ev bus.Event) error {
		_, err := s.Synchronize(ctx, ev.ProjectID)
		return err
	})
}

// NotifyTasksChanged tells subscribers that a project's tasks were edited.
func (s *Service) NotifyTasksChanged(ctx context.Context, projectID string) {
	s.bus().Publish(ctx, bus.Event{Topic: bus.TasksChanged, ProjectID: projectID})
}

// WatchStore republishes store change events as milestone changes until the
// channel closes or ctx is done. The events carry no project, so the
// published event has an empty ProjectID.
func (s *Service) WatchStore(ctx context.Context, events <-chan store.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.logger().WithFields(log.Fields{"key": ev.Key, "invalidated": ev.Invalidated}).Debug("app.store.changed")
			s.bus().Publish(ctx, bus.Event{Topic: bus.MilestonesChanged, Payload: ev})
		}
	}
}

func (s *Service) changed(ctx context.Context, projectID string, payload any) {
	s.bus().Publish(ctx, bus.Event{Topic: bus.MilestonesChanged, ProjectID: projectID, Payload: payload})
}

// UserMessage turns an error into the single line shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, milestone.ErrForbidden):
		return "Milestones created from task due dates can't be deleted or edited here. Change the task's due date instead."
	case errors.Is(err, milestone.ErrNotFound):
		return "That milestone no longer exists."
	case errors.Is(err, milestone.ErrValidation):
		return "Please check the milestone: " + strings.TrimPrefix(err.Error(), milestone.ErrValidation.Error()+": ")
	case errors.Is(err, milestone.ErrBackendUnavailable):
		return "Milestones are unavailable right now. Try again in a moment."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled."
	default:
		return "Something went wrong: " + err.Error()
	}
}
