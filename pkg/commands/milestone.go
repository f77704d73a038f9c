package commands

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/runner/milestones"
)

func addMilestone(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "milestone",
		Aliases: []string{"milestones", "ms"},
		Short:   "Manage project milestones",
	}

	addMilestoneAdd(cmd)
	addMilestoneList(cmd)
	addMilestoneRemove(cmd)
	addMilestoneDone(cmd)

	topLevel.AddCommand(cmd)
}

func addMilestoneAdd(parent *cobra.Command) {
	po := &options.ProjectOptions{}
	on := &options.OnOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a milestone to a project",
		Example: `
pomo milestone add --on 2024-6-5 Beta freeze
pomo milestone add -p website --on 7/1 Launch
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a milestone title")
			}
			title = strings.Join(args, " ")
			return nil
		},
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
			a := milestones.Add{
				Service: e.svc,
				Project: po.Project,
				Title:   title,
				On:      due,
				ShowID:  io.ShowID,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(a.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddOnArgs(cmd, on, "Due date of the milestone")
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)
	registerProjectCompletion(cmd)

	parent.AddCommand(cmd)
}

func addMilestoneList(parent *cobra.Command) {
	po := &options.ProjectOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the milestones of a project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			l := milestones.List{
				Service: e.svc,
				Project: po.Project,
				ShowID:  io.ShowID,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(l.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)
	registerProjectCompletion(cmd)

	parent.AddCommand(cmd)
}

func addMilestoneRemove(parent *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "rm <milestone id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove user milestones",
		Long: `Remove deletes milestones you created. Milestones derived from task due
dates follow their task and cannot be removed here.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			r := milestones.Remove{
				Service: e.svc,
				IDs:     args,
			}
			return oo.HandleError(userError(r.Do(cmd.Context())))
		},
	}

	options.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}

func addMilestoneDone(parent *cobra.Command) {
	oo := &options.OutputOptions{}
	var undo bool

	cmd := &cobra.Command{
		Use:     "done <milestone id>...",
		Aliases: []string{"complete"},
		Short:   "Mark user milestones completed",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			d := milestones.Done{
				Service: e.svc,
				IDs:     args,
				Undo:    undo,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(d.Do(cmd.Context())))
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the milestones open again.")
	options.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}
