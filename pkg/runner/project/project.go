// Package project sets project-level data used by the timeline.
package project

import (
	"context"
	"errors"
	"io"

	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/printers"
	"tableflip.dev/pomo/pkg/tasks"
)

// Deadline sets or clears a project's deadline.
type Deadline struct {
	Catalog *tasks.Catalog
	Project string
	On      milestone.Date
	Clear   bool
	JSON    bool
	Out     io.Writer
}

func (n *Deadline) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{Out: n.Out}
	if !n.Clear && n.On.IsZero() {
		p, err := n.Catalog.Project(ctx, n.Project)
		if errors.Is(err, milestone.ErrNotFound) {
			p = milestone.Project{ID: n.Project}
		} else if err != nil {
			return err
		}
		return n.print(&pp, p)
	}

	var deadline *milestone.Date
	if !n.Clear {
		d := n.On
		deadline = &d
	}
	p, err := n.Catalog.SetDeadline(ctx, n.Project, deadline)
	if err != nil {
		return err
	}
	return n.print(&pp, p)
}

func (n *Deadline) print(pp *printers.PrettyPrint, p milestone.Project) error {
	if n.JSON {
		return pp.JSON(p)
	}
	if p.Deadline == nil {
		pp.Linef("%s has no deadline", p.ID)
		return nil
	}
	pp.Linef("%s deadline %s", p.ID, p.Deadline)
	return nil
}

// List prints every project known to the catalog.
type List struct {
	Catalog *tasks.Catalog
	JSON    bool
	Out     io.Writer
}

func (n *List) Do(ctx context.Context) error {
	ids, err := n.Catalog.Projects(ctx)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{Out: n.Out}
	if n.JSON {
		if ids == nil {
			ids = []string{}
		}
		return pp.JSON(ids)
	}
	pp.TitleWithCount("Projects", len(ids), "project")
	for _, id := range ids {
		pp.Linef("  %s", id)
	}
	return nil
}
