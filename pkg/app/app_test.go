package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[string][]milestone.Task
	calls int32
	gate  chan struct{}
	enter chan struct{}
}

func (f *fakeTasks) TasksOf(_ context.Context, projectID string) ([]milestone.Task, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	snapshot := append([]milestone.Task(nil), f.tasks[projectID]...)
	f.mu.Unlock()
	if f.enter != nil {
		f.enter <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return snapshot, nil
}

func (f *fakeTasks) set(projectID string, tasks ...milestone.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasks == nil {
		f.tasks = map[string][]milestone.Task{}
	}
	f.tasks[projectID] = tasks
}

type fakeProjects map[string]milestone.Project

func (f fakeProjects) Project(_ context.Context, id string) (milestone.Project, error) {
	p, ok := f[id]
	if !ok {
		return milestone.Project{}, milestone.ErrNotFound
	}
	return p, nil
}

func newService(t *testing.T) (*Service, *fakeTasks) {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	tasks := &fakeTasks{}
	return &Service{
		Store: store.NewMemory(),
		Tasks: tasks,
		Bus:   bus.New(logger),
		Now:   func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) },
		Log:   logger,
	}, tasks
}

func record(b *bus.Bus, topic bus.Topic) *[]bus.Event {
	var got []bus.Event
	b.Subscribe(topic, func(_ context.Context, ev bus.Event) error {
		got = append(got, ev)
		return nil
	})
	return &got
}

func dueOn(s string) *milestone.Date {
	d := milestone.MustParseDate(s)
	return &d
}

func TestAddMilestonePublishes(t *testing.T) {
	svc, _ := newService(t)
	events := record(svc.Bus, bus.MilestonesChanged)

	m, err := svc.AddMilestone(context.Background(), "P1", "Kickoff", milestone.MustParseDate("2024-06-03"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Kind != milestone.KindUser {
		t.Fatalf("expected user milestone, got %q", m.Kind)
	}
	if len(*events) != 1 || (*events)[0].ProjectID != "P1" {
		t.Fatalf("expected one change event for P1, got %+v", *events)
	}

	if _, err := svc.AddMilestone(context.Background(), "P1", "", milestone.MustParseDate("2024-06-03")); !errors.Is(err, milestone.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(*events) != 1 {
		t.Fatalf("failed add must not publish, got %d events", len(*events))
	}
}

func TestDeleteDerivedMilestoneIsForbidden(t *testing.T) {
	svc, tasks := newService(t)
	ctx := context.Background()
	tasks.set("P1", milestone.Task{ID: "T1", ProjectID: "P1", Title: "Write", DueDate: dueOn("2024-06-05")})

	ms, err := svc.Synchronize(ctx, "P1")
	if err != nil || len(ms) != 1 {
		t.Fatalf("synchronize: %+v, %v", ms, err)
	}
	derived := ms[0]

	if err := svc.DeleteMilestone(ctx, derived.ID); !errors.Is(err, milestone.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CompleteMilestone(ctx, derived.ID, true); !errors.Is(err, milestone.ErrForbidden) {
		t.Fatalf("expected forbidden edit, got %v", err)
	}
	got, err := svc.Store.Get(ctx, derived.ID)
	if err != nil {
		t.Fatalf("derived milestone gone: %v", err)
	}
	if diff := cmp.Diff(derived, got); diff != "" {
		t.Fatalf("derived milestone changed (-want +got):\n%s", diff)
	}
}

func TestDeleteUserMilestone(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m, err := svc.AddMilestone(ctx, "P1", "Kickoff", milestone.MustParseDate("2024-06-03"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	events := record(svc.Bus, bus.MilestonesChanged)
	if err := svc.DeleteMilestone(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(*events) != 1 {
		t.Fatalf("expected change event, got %+v", *events)
	}
	if err := svc.DeleteMilestone(ctx, m.ID); !errors.Is(err, milestone.ErrNotFound) {
		t.Fatalf("expected not found on unknown id, got %v", err)
	}
}

func TestEditAndCompleteMilestone(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m, err := svc.AddMilestone(ctx, "P1", "Kickoff", milestone.MustParseDate("2024-06-03"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	title := "Kick-off"
	edited, err := svc.EditMilestone(ctx, m.ID, milestone.Patch{Title: &title})
	if err != nil || edited.Title != title {
		t.Fatalf("edit: %+v, %v", edited, err)
	}
	done, err := svc.CompleteMilestone(ctx, m.ID, true)
	if err != nil || !done.Completed {
		t.Fatalf("complete: %+v, %v", done, err)
	}
	if _, err := svc.EditMilestone(ctx, m.ID, milestone.Patch{}); !errors.Is(err, milestone.ErrValidation) {
		t.Fatalf("expected validation error for empty patch, got %v", err)
	}
}

func TestRenderModelUsesDeadlineAndClock(t *testing.T) {
	svc, _ := newService(t)
	svc.Projects = fakeProjects{"P1": {ID: "P1", Deadline: dueOn("2024-06-10")}}

	rm, err := svc.RenderModel(context.Background(), "P1")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dl, ok := rm.Deadline()
	if !ok || dl.DueDate.String() != "2024-06-10" {
		t.Fatalf("expected synthesized deadline, got %+v", rm.Items)
	}
	if rm.Today.Date.String() != "2024-06-01" {
		t.Fatalf("expected today from clock, got %s", rm.Today.Date)
	}
	if rm.Range.Start.After(milestone.MustParseDate("2024-05-29")) || rm.Range.End.Before(milestone.MustParseDate("2024-06-13")) {
		t.Fatalf("range too narrow: %s..%s", rm.Range.Start, rm.Range.End)
	}

	other, err := svc.RenderModel(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("render unknown project: %v", err)
	}
	if len(other.Items) != 0 {
		t.Fatalf("expected empty model, got %+v", other.Items)
	}
}

func TestAttachSynchronizesOnTaskChanges(t *testing.T) {
	svc, tasks := newService(t)
	ctx := context.Background()
	events := record(svc.Bus, bus.MilestonesChanged)

	detach := svc.Attach()
	tasks.set("P1", milestone.Task{ID: "T1", ProjectID: "P1", Title: "Write", DueDate: dueOn("2024-06-05")})
	svc.NotifyTasksChanged(ctx, "P1")

	ms, _ := svc.Milestones(ctx, "P1")
	if len(ms) != 1 || ms[0].SourceTaskID != "T1" {
		t.Fatalf("expected derived milestone after notification, got %+v", ms)
	}
	if len(*events) != 1 {
		t.Fatalf("expected one milestones-changed event, got %d", len(*events))
	}
	if refreshed, ok := (*events)[0].Payload.([]milestone.Milestone); !ok || len(refreshed) != 1 {
		t.Fatalf("expected refreshed list payload, got %#v", (*events)[0].Payload)
	}

	detach()
	detach()
	if n := svc.Bus.Len(bus.TasksChanged); n != 0 {
		t.Fatalf("expected no task subscribers after detach, got %d", n)
	}
	tasks.set("P1")
	svc.NotifyTasksChanged(ctx, "P1")
	ms, _ = svc.Milestones(ctx, "P1")
	if len(ms) != 1 {
		t.Fatalf("detached service still synchronized: %+v", ms)
	}
}

func TestSynchronizeJoinsInflightRun(t *testing.T) {
	svc, tasks := newService(t)
	tasks.set("P1", milestone.Task{ID: "T1", ProjectID: "P1", Title: "Write", DueDate: dueOn("2024-06-05")})
	tasks.enter = make(chan struct{}, 2)
	tasks.gate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]milestone.Milestone, 2)
	errs := make([]error, 2)
	run := func(i int) {
		defer wg.Done()
		results[i], errs[i] = svc.Synchronize(context.Background(), "P1")
	}

	wg.Add(1)
	go run(0)
	<-tasks.enter
	wg.Add(1)
	go run(1)
	time.Sleep(50 * time.Millisecond)
	close(tasks.gate)
	wg.Wait()

	// The leader's run plus one follow-up for the caller that joined it.
	if n := atomic.LoadInt32(&tasks.calls); n != 2 {
		t.Fatalf("expected two synchronizer runs, got %d", n)
	}
	for i := range errs {
		if errs[i] != nil || len(results[i]) != 1 {
			t.Fatalf("caller %d: %+v, %v", i, results[i], errs[i])
		}
	}
	ms, _ := svc.Milestones(context.Background(), "P1")
	if len(ms) != 1 {
		t.Fatalf("expected no duplicates, got %+v", ms)
	}
}

func TestSynchronizeSeesTaskChangedDuringInflightRun(t *testing.T) {
	svc, tasks := newService(t)
	ctx := context.Background()
	tasks.set("P1", milestone.Task{ID: "T1", ProjectID: "P1", Title: "Write", DueDate: dueOn("2024-06-05")})
	tasks.enter = make(chan struct{}, 2)
	tasks.gate = make(chan struct{})

	first := make(chan error, 1)
	go func() {
		_, err := svc.Synchronize(ctx, "P1")
		first <- err
	}()
	// The first run has read the task list and is blocked.
	<-tasks.enter

	tasks.set("P1",
		milestone.Task{ID: "T1", ProjectID: "P1", Title: "Write", DueDate: dueOn("2024-06-05")},
		milestone.Task{ID: "T2", ProjectID: "P1", Title: "Review", DueDate: dueOn("2024-06-07")},
	)
	type result struct {
		ms  []milestone.Milestone
		err error
	}
	second := make(chan result, 1)
	go func() {
		ms, err := svc.Synchronize(ctx, "P1")
		second <- result{ms, err}
	}()
	time.Sleep(50 * time.Millisecond)
	close(tasks.gate)

	if err := <-first; err != nil {
		t.Fatalf("first synchronize: %v", err)
	}
	got := <-second
	if got.err != nil {
		t.Fatalf("second synchronize: %v", got.err)
	}
	if len(got.ms) != 2 {
		t.Fatalf("expected the change made during the first run to be reconciled, got %+v", got.ms)
	}
	ms, _ := svc.Milestones(ctx, "P1")
	if len(ms) != 2 || ms[1].SourceTaskID != "T2" {
		t.Fatalf("expected a derived milestone for T2, got %+v", ms)
	}
}

func TestWatchStoreRepublishes(t *testing.T) {
	svc, _ := newService(t)
	events := record(svc.Bus, bus.MilestonesChanged)

	ch := make(chan store.ChangeEvent, 2)
	ch <- store.ChangeEvent{Key: "milestones"}
	ch <- store.ChangeEvent{Invalidated: true}
	close(ch)
	svc.WatchStore(context.Background(), ch)

	if len(*events) != 2 {
		t.Fatalf("expected two events, got %+v", *events)
	}
}

func TestReport(t *testing.T) {
	done := milestone.MustParseDate("2024-05-30")
	old := milestone.MustParseDate("2024-05-01")
	st := store.NewMemory(
		milestone.Milestone{ID: "a", ProjectID: "P1", Title: "Done", DueDate: done, Completed: true, CompletedDate: &done},
		milestone.Milestone{ID: "b", ProjectID: "P1", Title: "Long ago", DueDate: old, Completed: true, CompletedDate: &old},
		milestone.Milestone{ID: "c", ProjectID: "P2", Title: "Late", DueDate: milestone.MustParseDate("2024-05-31")},
		milestone.Milestone{ID: "d", ProjectID: "P2", Title: "Upcoming", DueDate: milestone.MustParseDate("2024-06-09")},
	)
	svc, _ := newService(t)
	svc.Store = st

	res, err := svc.Report(context.Background(), []string{"P2", "P1", "P3"}, milestone.MustParseDate("2024-06-01"), milestone.MustParseDate("2024-05-25"))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if res.Completed != 1 || res.Overdue != 1 || len(res.Sections) != 2 {
		t.Fatalf("unexpected report %+v", res)
	}
	if res.Sections[0].ProjectID != "P1" || res.Sections[0].Items[0].Milestone.ID != "a" {
		t.Fatalf("unexpected first section %+v", res.Sections[0])
	}
	if !res.Sections[1].Items[0].Overdue || res.Sections[1].Items[0].Milestone.ID != "c" {
		t.Fatalf("unexpected second section %+v", res.Sections[1])
	}
	if !res.Since.Before(res.Until) {
		t.Fatalf("expected window normalized, got %s..%s", res.Since, res.Until)
	}
}

func TestUserMessage(t *testing.T) {
	tests := map[error]string{
		milestone.ErrForbidden:          "can't be deleted",
		milestone.ErrNotFound:           "no longer exists",
		milestone.ErrBackendUnavailable: "unavailable",
		context.Canceled:                "cancelled",
	}
	for err, want := range tests {
		if got := UserMessage(err); !strings.Contains(got, want) {
			t.Fatalf("UserMessage(%v) = %q, want it to contain %q", err, got, want)
		}
	}
	if got := UserMessage(errors.New("boom")); !strings.Contains(got, "boom") {
		t.Fatalf("unexpected fallback %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}
