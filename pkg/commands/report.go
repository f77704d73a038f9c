package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/runner/report"
	"tableflip.dev/pomo/pkg/timeutil"
)

func addReport(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}
	var last string

	cmd := &cobra.Command{
		Use:   "report [project]...",
		Short: "Show recently completed and overdue milestones",
		Long: `Report lists milestones completed within the last few days and the open
milestones that are past due, grouped by project. Without arguments every known
project is included.

Examples:
  pomo report
  pomo report --last 2w website`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			days, _, err := timeutil.ParseWindow(last)
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			r := report.Report{
				Service:  e.svc,
				Catalog:  e.catalog,
				Projects: args,
				Days:     days,
				JSON:     oo.JSON,
			}
			return oo.HandleError(userError(r.Do(cmd.Context())))
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return projectCompletions(cmd), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().StringVar(&last, "last", timeutil.DefaultWindow, "Window to include, counting today (for example 3d, 1w2d).")
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
