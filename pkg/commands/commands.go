package commands

import (
	"os"
	"strings"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "pomo",
		Short: base.Wrap80("Project milestones and timelines on the command line. Task due dates become milestones automatically."),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if os.Getenv("DEBUG") != "" {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addMilestone(topLevel)
	addTimeline(topLevel)
	addSync(topLevel)
	addTask(topLevel)
	addProject(topLevel)
	addReport(topLevel)
	addServe(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}

// setupLogging applies the configured level unless DEBUG already forced one.
func setupLogging(level string) {
	log.SetOutput(os.Stderr)
	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
		return
	}
	if level == "" {
		return
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, keeping info")
		return
	}
	log.SetLevel(lvl)
}
