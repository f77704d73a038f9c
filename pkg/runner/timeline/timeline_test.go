package timeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
	tl "tableflip.dev/pomo/pkg/timeline"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newService(st store.Store) *app.Service {
	color.NoColor = true
	return &app.Service{
		Store: st,
		Bus:   bus.New(log.New()),
		Now:   func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestTimelineJSON(t *testing.T) {
	svc := newService(store.NewMemory())
	ctx := context.Background()
	if _, err := svc.AddMilestone(ctx, "p1", "Beta", milestone.MustParseDate("2024-06-05")); err != nil {
		t.Fatalf("add: %v", err)
	}
	var buf bytes.Buffer
	if err := (&Timeline{Service: svc, Project: "p1", JSON: true, Out: &buf}).Do(ctx); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	for _, want := range []string{`"title": "Beta"`, `"today": {`, `"range": {`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %s in %s", want, buf.String())
		}
	}
}

func TestTimelineText(t *testing.T) {
	svc := newService(store.NewMemory())
	ctx := context.Background()
	if _, err := svc.AddMilestone(ctx, "p1", "Beta", milestone.MustParseDate("2024-06-05")); err != nil {
		t.Fatalf("add: %v", err)
	}
	var buf bytes.Buffer
	if err := (&Timeline{Service: svc, Project: "p1", Width: 40, Calendar: true, Out: &buf}).Do(ctx); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	out := buf.String()
	// The range 2024-05-29..2024-06-08 spans two months.
	if !strings.Contains(out, "Beta") || !strings.Contains(out, "May") || !strings.Contains(out, "June") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestMonthsOf(t *testing.T) {
	tests := map[string]struct {
		start, end string
		want       []string
	}{
		"one month":  {"2024-06-02", "2024-06-20", []string{"2024-06-01"}},
		"two months": {"2024-05-29", "2024-06-08", []string{"2024-05-01", "2024-06-01"}},
		"year end":   {"2024-12-20", "2025-02-01", []string{"2024-12-01", "2025-01-01", "2025-02-01"}},
	}
	for name, tc := range tests {
		r := tl.Range{Start: milestone.MustParseDate(tc.start), End: milestone.MustParseDate(tc.end)}
		var got []string
		for _, d := range monthsOf(r) {
			got = append(got, d.String())
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("%s: got %v, want %v", name, got, tc.want)
		}
	}
}

func TestTimelineWatchNeedsWatcher(t *testing.T) {
	svc := newService(store.NewMemory())
	var buf bytes.Buffer
	err := (&Timeline{Service: svc, Project: "p1", Watch: true, Out: &buf}).Do(context.Background())
	if !errors.Is(err, store.ErrWatchUnsupported) {
		t.Fatalf("expected watch unsupported, got %v", err)
	}
}

func TestTimelineWatchRedraws(t *testing.T) {
	base := t.TempDir()
	dev, err := store.NewDevice(base, log.New())
	if err != nil {
		t.Fatalf("open device: %v", err)
	}
	other, err := store.NewDevice(base, log.New())
	if err != nil {
		t.Fatalf("open second device: %v", err)
	}
	svc := newService(dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- (&Timeline{Service: svc, Project: "p1", Watch: true, Watcher: dev, Out: out}).Do(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if _, err := other.Create(context.Background(), "p1", milestone.Draft{Title: "Launch", DueDate: milestone.MustParseDate("2024-06-07")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), "Launch") {
		select {
		case <-deadline:
			t.Fatalf("timeline never redrew, output %q", out.String())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
