package commands

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func addCompletions(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates bash completion scripts",
		Long: `To load completion run

. <(pomo completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(pomo completion)
`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = topLevel.GenBashCompletion(os.Stdout)
		},
	}

	topLevel.AddCommand(cmd)
}

func registerProjectCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("project", func(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, p := range projectCompletions(cmd) {
			if strings.HasPrefix(p, toComplete) {
				out = append(out, p)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

func projectCompletions(cmd *cobra.Command) []string {
	e, err := loadEnv()
	if err != nil {
		return nil
	}
	defer e.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ps, err := e.catalog.Projects(ctx)
	if err != nil {
		return nil
	}
	return ps
}
