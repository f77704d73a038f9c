package bus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

func quietBus() (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	return New(logger), &buf
}

func TestPublishInSubscriptionOrder(t *testing.T) {
	b, _ := quietBus()
	var got []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		b.Subscribe(MilestonesChanged, func(_ context.Context, ev Event) error {
			got = append(got, name+":"+ev.ProjectID)
			return nil
		})
	}
	b.Subscribe(TasksChanged, func(context.Context, Event) error {
		t.Fatal("tasks handler called for milestones event")
		return nil
	})

	b.Publish(context.Background(), Event{Topic: MilestonesChanged, ProjectID: "p1"})
	if diff := cmp.Diff([]string{"first:p1", "second:p1", "third:p1"}, got); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b, _ := quietBus()
	calls := 0
	unsub := b.Subscribe(TasksChanged, func(context.Context, Event) error {
		calls++
		return nil
	})
	other := b.Subscribe(TasksChanged, func(context.Context, Event) error { return nil })
	if b.Len(TasksChanged) != 2 {
		t.Fatalf("expected two subscriptions, got %d", b.Len(TasksChanged))
	}

	unsub()
	unsub()
	if b.Len(TasksChanged) != 1 {
		t.Fatalf("expected one subscription left, got %d", b.Len(TasksChanged))
	}
	b.Publish(context.Background(), Event{Topic: TasksChanged})
	if calls != 0 {
		t.Fatalf("unsubscribed handler was called %d times", calls)
	}
	other()
	if b.Len(TasksChanged) != 0 {
		t.Fatalf("expected no subscriptions, got %d", b.Len(TasksChanged))
	}
}

func TestFailingHandlersDoNotBlockOthers(t *testing.T) {
	b, buf := quietBus()
	reached := false
	b.Subscribe(MilestonesChanged, func(context.Context, Event) error {
		return errors.New("boom")
	})
	b.Subscribe(MilestonesChanged, func(context.Context, Event) error {
		panic("kaboom")
	})
	b.Subscribe(MilestonesChanged, func(context.Context, Event) error {
		reached = true
		return nil
	})

	b.Publish(context.Background(), Event{Topic: MilestonesChanged, ProjectID: "p1"})
	if !reached {
		t.Fatal("last handler not reached")
	}
	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "kaboom") {
		t.Fatalf("expected both failures logged, got %q", out)
	}
}

func TestHandlersMayChangeSubscriptions(t *testing.T) {
	b, _ := quietBus()
	var got []string
	var unsubSelf func()
	unsubSelf = b.Subscribe(MilestonesChanged, func(ctx context.Context, ev Event) error {
		got = append(got, "once")
		unsubSelf()
		b.Subscribe(MilestonesChanged, func(context.Context, Event) error {
			got = append(got, "late")
			return nil
		})
		return nil
	})
	b.Subscribe(MilestonesChanged, func(ctx context.Context, ev Event) error {
		got = append(got, "steady")
		if ev.Payload == nil {
			b.Publish(ctx, Event{Topic: TasksChanged, ProjectID: ev.ProjectID, Payload: "nested"})
		}
		return nil
	})
	b.Subscribe(TasksChanged, func(_ context.Context, ev Event) error {
		got = append(got, "nested:"+ev.Payload.(string))
		return nil
	})

	b.Publish(context.Background(), Event{Topic: MilestonesChanged})
	b.Publish(context.Background(), Event{Topic: MilestonesChanged, Payload: 1})
	want := []string{"once", "steady", "nested:nested", "steady", "late"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("expected a single process-wide bus")
	}
}
