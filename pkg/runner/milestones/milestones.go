// Package milestones holds the runners behind `pomo milestone`.
package milestones

import (
	"context"
	"fmt"
	"io"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/printers"
)

// Add creates a user milestone and prints the project's milestones.
type Add struct {
	Service *app.Service
	Project string
	Title   string
	On      milestone.Date
	ShowID  bool
	JSON    bool
	Out     io.Writer
}

func (n *Add) Do(ctx context.Context) error {
	if n.On.IsZero() {
		return fmt.Errorf("%w: a due date is required, set --on", milestone.ErrValidation)
	}
	m, err := n.Service.AddMilestone(ctx, n.Project, n.Title, n.On)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: n.Out}
	if n.JSON {
		return pp.JSON(m)
	}
	return printProject(ctx, n.Service, &pp, n.Project)
}

// List prints a project's milestones.
type List struct {
	Service *app.Service
	Project string
	ShowID  bool
	JSON    bool
	Out     io.Writer
}

func (n *List) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: n.Out}
	if n.JSON {
		ms, err := n.Service.Milestones(ctx, n.Project)
		if err != nil {
			return err
		}
		return pp.JSON(ms)
	}
	return printProject(ctx, n.Service, &pp, n.Project)
}

// Remove deletes user milestones by id.
type Remove struct {
	Service *app.Service
	IDs     []string
	Out     io.Writer
}

func (n *Remove) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{Out: n.Out}
	for _, id := range n.IDs {
		if err := n.Service.DeleteMilestone(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		pp.Linef("removed %s", id)
	}
	return nil
}

// Done marks user milestones complete, or reopens them when Undo is set.
type Done struct {
	Service *app.Service
	IDs     []string
	Undo    bool
	JSON    bool
	Out     io.Writer
}

func (n *Done) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{Out: n.Out}
	updated := make([]milestone.Milestone, 0, len(n.IDs))
	for _, id := range n.IDs {
		m, err := n.Service.CompleteMilestone(ctx, id, !n.Undo)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		updated = append(updated, m)
	}
	if n.JSON {
		return pp.JSON(updated)
	}
	pp.Milestones(updated...)
	return nil
}

func printProject(ctx context.Context, svc *app.Service, pp *printers.PrettyPrint, project string) error {
	ms, err := svc.Milestones(ctx, project)
	if err != nil {
		return err
	}
	pp.TitleWithCount(project, len(ms), "milestone")
	pp.Milestones(ms...)
	return nil
}
