package printers

import (
	"github.com/fatih/color"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/milestone"
)

// Report prints completed and overdue milestones grouped by project.
func (pp *PrettyPrint) Report(res app.ReportResult) {
	faint := color.New(color.Faint)
	red := color.New(color.FgRed)

	_, _ = faint.Fprintf(pp.out(), "%s to %s: %d completed, %d overdue\n\n", res.Since, res.Until, res.Completed, res.Overdue)
	if len(res.Sections) == 0 {
		pp.none()
		return
	}
	for _, sec := range res.Sections {
		pp.TitleWithCount(sec.ProjectID, len(sec.Items), "milestone")
		var done, late []milestone.Milestone
		for _, it := range sec.Items {
			if it.Overdue {
				late = append(late, it.Milestone)
			} else {
				done = append(done, it.Milestone)
			}
		}
		if len(done) > 0 {
			pp.Milestones(done...)
		}
		if len(late) > 0 {
			_, _ = red.Fprintln(pp.out(), "overdue")
			pp.Milestones(late...)
		}
	}
}
