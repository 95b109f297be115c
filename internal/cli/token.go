package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quiz-runner/internal/auth"
	"quiz-runner/internal/config"
)

// NewTokenCmd mints a development token signed with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var subject, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for the quiz API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			authority := auth.NewAuthority(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			token, err := authority.Issue(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (student id)")
	cmd.Flags().StringVar(&role, "role", "student", "token role")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
