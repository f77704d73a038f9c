// Package report prints completed and overdue milestones.
package report

import (
	"context"
	"io"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/printers"
	"tableflip.dev/pomo/pkg/tasks"
)

type Report struct {
	Service *app.Service
	Catalog *tasks.Catalog
	// Projects limits the report; empty means every known project.
	Projects []string
	Days     int
	JSON     bool
	Out      io.Writer
}

func (n *Report) Do(ctx context.Context) error {
	projects := n.Projects
	if len(projects) == 0 {
		var err error
		projects, err = n.Catalog.Projects(ctx)
		if err != nil {
			return err
		}
	}
	days := n.Days
	if days <= 0 {
		days = 7
	}
	until := n.Service.Today()
	res, err := n.Service.Report(ctx, projects, until.AddDays(-(days - 1)), until)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{Out: n.Out}
	if n.JSON {
		return pp.JSON(res)
	}
	pp.Report(res)
	return nil
}
