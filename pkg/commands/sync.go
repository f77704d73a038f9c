package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/runner/synchronize"
)

func addSync(topLevel *cobra.Command) {
	po := &options.ProjectOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile task due dates into milestones",
		Long: `Sync creates one milestone per task due date, updates those that drifted and
removes the ones whose task lost its due date. Milestones you added by hand are
never touched. Running it twice in a row changes nothing the second time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if err := po.Validate(); err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			s := synchronize.Sync{
				Service: e.svc,
				Project: po.Project,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(s.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddOutputArg(cmd, oo)
	registerProjectCompletion(cmd)

	topLevel.AddCommand(cmd)
}
