package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/daylog/internal/auth"
)

func newTokenCmd(load ConfigLoader) *cobra.Command {
	var (
		sub   string
		email string
		name  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token signed with DAYLOG_AUTH_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			token, err := auth.Issue(
				auth.Claims{Subject: sub, Email: email, Name: name},
				ttl,
				auth.Config{Secret: cfg.AuthSecret, Issuer: cfg.AuthIssuer},
			)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&sub, "sub", "", "User id placed in the subject claim")
	cmd.Flags().StringVar(&email, "email", "", "Optional email claim")
	cmd.Flags().StringVar(&name, "name", "", "Optional display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}
