// Package timeline renders a project's timeline on the terminal.
package timeline

import (
	"context"
	"io"
	"time"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/printers"
	"tableflip.dev/pomo/pkg/store"
	tl "tableflip.dev/pomo/pkg/timeline"
)

type Timeline struct {
	Service  *app.Service
	Project  string
	Width    int
	Calendar bool
	ShowID   bool
	JSON     bool
	// Watch keeps running and redraws whenever the store reports a change.
	Watch   bool
	Watcher store.Watcher
	Out     io.Writer
}

func (n *Timeline) Do(ctx context.Context) error {
	if err := n.render(ctx); err != nil {
		return err
	}
	if !n.Watch {
		return nil
	}
	if n.Watcher == nil {
		return store.ErrWatchUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := n.Watcher.Watch(ctx)
	if err != nil {
		return err
	}

	redraw := make(chan struct{}, 1)
	unsubscribe := n.Service.Events().Subscribe(bus.MilestonesChanged, func(_ context.Context, ev bus.Event) error {
		if ev.ProjectID != "" && ev.ProjectID != n.Project {
			return nil
		}
		select {
		case redraw <- struct{}{}:
		default:
		}
		return nil
	})
	defer unsubscribe()

	go n.Service.WatchStore(ctx, events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			if err := n.render(ctx); err != nil {
				return err
			}
		}
	}
}

func (n *Timeline) render(ctx context.Context) error {
	rm, err := n.Service.RenderModel(ctx, n.Project)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: n.Out}
	if n.JSON {
		return pp.JSON(rm)
	}
	pp.Timeline(n.Project, rm, n.Width)
	if n.Calendar {
		ms, err := n.Service.Milestones(ctx, n.Project)
		if err != nil {
			return err
		}
		for _, month := range monthsOf(rm.Range) {
			pp.NewLine()
			pp.Month(month, rm.Today.Date, ms...)
		}
	}
	return nil
}

// monthsOf returns the first day of every month the range touches.
func monthsOf(r tl.Range) []milestone.Date {
	var out []milestone.Date
	start := r.Start.Time()
	for m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !milestone.DateOf(m).After(r.End); m = m.AddDate(0, 1, 0) {
		out = append(out, milestone.DateOf(m))
	}
	return out
}
