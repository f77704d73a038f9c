// Package synchronize runs the due-date synchronizer for a project.
package synchronize

import (
	"context"
	"io"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/printers"
)

type Sync struct {
	Service *app.Service
	Project string
	JSON    bool
	Out     io.Writer
}

func (n *Sync) Do(ctx context.Context) error {
	res, err := n.Service.SynchronizeWithResult(ctx, n.Project)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{Out: n.Out}
	if n.JSON {
		return pp.JSON(map[string]any{
			"projectId":  n.Project,
			"created":    res.Created,
			"updated":    res.Updated,
			"removed":    res.Removed,
			"milestones": res.Milestones,
		})
	}
	pp.Linef("%s: %d created, %d updated, %d removed", n.Project, res.Created, res.Updated, res.Removed)
	pp.Milestones(res.Milestones...)
	return nil
}
