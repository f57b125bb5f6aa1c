// Package cli exposes the daylog binary's commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/daylog/internal/config"
)

// ConfigLoader returns the process configuration. config.Load in production.
type ConfigLoader func() *config.Config

// NewRootCmd creates the top-level "daylog" command. Without a subcommand it serves.
func NewRootCmd(load ConfigLoader) *cobra.Command {
	serve := newServeCmd(load)

	root := &cobra.Command{
		Use:           "daylog",
		Short:         "Personal time tracking against a 24-hour day budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.AddCommand(
		serve,
		newTokenCmd(load),
		newSummaryCmd(load),
		newVersionCmd(),
	)

	return root
}
