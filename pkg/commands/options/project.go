// Package options defines shared flag helpers for CLI commands.
package options

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// ProjectOptions selects the project a command works on.
type ProjectOptions struct {
	Project string
}

func AddProjectArgs(cmd *cobra.Command, o *ProjectOptions) {
	def := os.Getenv("POMO_PROJECT")
	if def == "" {
		def = "default"
	}
	cmd.Flags().StringVarP(&o.Project, "project", "p", def,
		"Specify the project. Defaults to $POMO_PROJECT or \"default\".")
}

func (o *ProjectOptions) Validate() error {
	if o.Project == "" {
		return errors.New("a project is required, set --project")
	}
	return nil
}
