package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cexll/redesign/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token --subject NAME",
		Short: "Mint a bearer token for the feedback API",
		Long:  `Signs a token with $API_JWT_SECRET so the annotation UI can call /api routes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cfg.AuthEnabled() {
				return fmt.Errorf("API_JWT_SECRET is not set")
			}

			token, err := auth.GenerateToken([]byte(cfg.APIJWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "who the token is issued to (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
