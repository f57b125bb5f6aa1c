package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/daylog/internal/app"
	"github.com/MrSnakeDoc/daylog/internal/logger"
)

func newServeCmd(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = loggerClient.Sync() }()

			a, err := app.New(cfg, loggerClient)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
