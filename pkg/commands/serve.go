package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/runner/serve"
)

func addServe(topLevel *cobra.Command) {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the milestone API over HTTP",
		Long: `Serve exposes the configured milestone store over HTTP so other machines can
use it with backend "remote". It runs until interrupted.`,
		Example: `
pomo serve
pomo serve --listen 127.0.0.1:9090
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			addr := listen
			if addr == "" {
				addr = e.cfg.ListenAddr()
			}
			s := serve.Serve{
				Store: e.store,
				Addr:  addr,
				Log:   log.StandardLogger(),
			}
			return s.Do(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on. Defaults to the configured listen address.")
	topLevel.AddCommand(cmd)
}
