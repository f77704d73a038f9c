package commands

import (
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/runner/project"
)

func addProject(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project level settings",
	}

	addProjectDeadline(cmd)
	addProjectList(cmd)

	topLevel.AddCommand(cmd)
}

func addProjectDeadline(parent *cobra.Command) {
	po := &options.ProjectOptions{}
	on := &options.OnOptions{}
	oo := &options.OutputOptions{}
	var clearDeadline bool

	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Show, set or clear the project deadline",
		Example: `
pomo project deadline -p website
pomo project deadline -p website --on 2024-6-10
pomo project deadline -p website --clear
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if err := po.Validate(); err != nil {
				return err
			}
			due, err := on.GetOn(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			d := project.Deadline{
				Catalog: e.catalog,
				Project: po.Project,
				On:      due,
				Clear:   clearDeadline,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(d.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddOnArgs(cmd, on, "Deadline of the project")
	options.AddOutputArg(cmd, oo)
	cmd.Flags().BoolVar(&clearDeadline, "clear", false, "Remove the project deadline.")
	registerProjectCompletion(cmd)

	parent.AddCommand(cmd)
}

func addProjectList(parent *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List known projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			l := project.List{
				Catalog: e.catalog,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(l.Do(cmd.Context())))
		},
	}

	options.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}
