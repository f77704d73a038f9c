// Package tasks holds the runners behind `pomo task`. Every change is
// announced on the bus so derived milestones follow.
package tasks

import (
	"context"
	"fmt"
	"io"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/printers"
	"tableflip.dev/pomo/pkg/tasks"
)

// Add creates a task, optionally with a due date.
type Add struct {
	Service *app.Service
	Catalog *tasks.Catalog
	Project string
	Title   string
	On      milestone.Date
	JSON    bool
	Out     io.Writer
}

func (n *Add) Do(ctx context.Context) error {
	t := milestone.Task{ProjectID: n.Project, Title: n.Title}
	if !n.On.IsZero() {
		d := n.On
		t.DueDate = &d
	}
	t, err := n.Catalog.PutTask(ctx, t)
	if err != nil {
		return err
	}
	n.Service.NotifyTasksChanged(ctx, n.Project)
	return printTask(&printers.PrettyPrint{ShowID: true, Out: n.Out}, t, n.JSON)
}

// Due moves, sets or clears a task's due date.
type Due struct {
	Service *app.Service
	Catalog *tasks.Catalog
	ID      string
	On      milestone.Date
	Clear   bool
	Done    *bool
	JSON    bool
	Out     io.Writer
}

func (n *Due) Do(ctx context.Context) error {
	t, err := n.Catalog.Task(ctx, n.ID)
	if err != nil {
		return err
	}
	switch {
	case n.Clear:
		t.DueDate = nil
	case !n.On.IsZero():
		d := n.On
		t.DueDate = &d
	}
	if n.Done != nil {
		t.Completed = *n.Done
	}
	t, err = n.Catalog.PutTask(ctx, t)
	if err != nil {
		return err
	}
	n.Service.NotifyTasksChanged(ctx, t.ProjectID)
	return printTask(&printers.PrettyPrint{ShowID: true, Out: n.Out}, t, n.JSON)
}

// Remove deletes tasks by id.
type Remove struct {
	Service *app.Service
	Catalog *tasks.Catalog
	IDs     []string
	Out     io.Writer
}

func (n *Remove) Do(ctx context.Context) error {
	pp := printers.PrettyPrint{Out: n.Out}
	for _, id := range n.IDs {
		project, err := n.Catalog.DeleteTask(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if project == "" {
			pp.Linef("%s not found", id)
			continue
		}
		n.Service.NotifyTasksChanged(ctx, project)
		pp.Linef("removed %s", id)
	}
	return nil
}

// List prints a project's tasks.
type List struct {
	Catalog *tasks.Catalog
	Project string
	ShowID  bool
	JSON    bool
	Out     io.Writer
}

func (n *List) Do(ctx context.Context) error {
	ts, err := n.Catalog.TasksOf(ctx, n.Project)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: n.Out}
	if n.JSON {
		return pp.JSON(ts)
	}
	pp.TitleWithCount(n.Project, len(ts), "task")
	pp.Tasks(ts...)
	return nil
}

func printTask(pp *printers.PrettyPrint, t milestone.Task, asJSON bool) error {
	if asJSON {
		return pp.JSON(t)
	}
	pp.Tasks(t)
	return nil
}
