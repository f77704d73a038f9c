package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/printers"
	"tableflip.dev/pomo/pkg/runner/timeline"
)

func addTimeline(topLevel *cobra.Command) {
	po := &options.ProjectOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}
	var (
		width    int
		calendar bool
		watch    bool
	)

	cmd := &cobra.Command{
		Use:     "timeline",
		Aliases: []string{"tl"},
		Short:   "Show a project's milestones on a timeline",
		Long: `Timeline lays the project's milestones, its deadline and today along a
horizontal axis. Milestones alternate above and below the line; the deadline
and today move to the other side when they would collide with a neighbour.`,
		Example: `
pomo timeline -p website
pomo timeline --calendar
pomo timeline --watch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			t := timeline.Timeline{
				Service:  e.svc,
				Project:  po.Project,
				Width:    width,
				Calendar: calendar,
				ShowID:   io.ShowID,
				JSON:     oo.JSON,
				Watch:    watch,
				Watcher:  e.watcher(),
			}
			return oo.HandleError(userError(t.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)
	cmd.Flags().IntVarP(&width, "width", "w", printers.DefaultAxisWidth, "Width of the timeline axis in columns.")
	cmd.Flags().BoolVar(&calendar, "calendar", false, "Also print a calendar for every month the timeline spans.")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and redraw when milestones change.")
	registerProjectCompletion(cmd)

	topLevel.AddCommand(cmd)
}
