package commands

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/commands/options"
	"tableflip.dev/pomo/pkg/runner/tasks"
)

func addTask(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks whose due dates drive milestones",
	}

	addTaskAdd(cmd)
	addTaskDue(cmd)
	addTaskRemove(cmd)
	addTaskList(cmd)

	topLevel.AddCommand(cmd)
}

func addTaskAdd(parent *cobra.Command) {
	po := &options.ProjectOptions{}
	on := &options.OnOptions{}
	oo := &options.OutputOptions{}
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task, optionally with a due date",
		Example: `
pomo task add Write release notes
pomo task add --on 6/5 Cut the release branch
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a task title")
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
			a := tasks.Add{
				Service: e.svc,
				Catalog: e.catalog,
				Project: po.Project,
				Title:   title,
				On:      due,
				JSON:    oo.JSON,
			}
			return oo.HandleError(userError(a.Do(cmd.Context())))
		},
	}

	options.AddProjectArgs(cmd, po)
	options.AddOnArgs(cmd, on, "Due date of the task")
	options.AddOutputArg(cmd, oo)
	registerProjectCompletion(cmd)

	parent.AddCommand(cmd)
}

func addTaskDue(parent *cobra.Command) {
	on := &options.OnOptions{}
	oo := &options.OutputOptions{}
	var (
		clearDue bool
		done     bool
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "due <task id>",
		Short: "Change a task's due date or completion",
		Example: `
pomo task due <task id> --on 2024-6-8
pomo task due <task id> --clear
pomo task due <task id> --done
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if done && open {
				return errors.New("--done and --open are mutually exclusive")
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
			d := tasks.Due{
				Service: e.svc,
				Catalog: e.catalog,
				ID:      args[0],
				On:      due,
				Clear:   clearDue,
				JSON:    oo.JSON,
			}
			switch {
			case done:
				d.Done = &done
			case open:
				completed := false
				d.Done = &completed
			}
			return oo.HandleError(userError(d.Do(cmd.Context())))
		},
	}

	options.AddOnArgs(cmd, on, "New due date of the task")
	options.AddOutputArg(cmd, oo)
	cmd.Flags().BoolVar(&clearDue, "clear", false, "Remove the task's due date.")
	cmd.Flags().BoolVar(&done, "done", false, "Mark the task completed.")
	cmd.Flags().BoolVar(&open, "open", false, "Mark the task open again.")

	parent.AddCommand(cmd)
}

func addTaskRemove(parent *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "rm <task id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove tasks and the milestones derived from them",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			r := tasks.Remove{
				Service: e.svc,
				Catalog: e.catalog,
				IDs:     args,
			}
			return oo.HandleError(userError(r.Do(cmd.Context())))
		},
	}

	options.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}

func addTaskList(parent *cobra.Command) {
	po := &options.ProjectOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the tasks of a project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return oo.HandleError(err)
			}
			defer e.Close()
			l := tasks.List{
				Catalog: e.catalog,
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
