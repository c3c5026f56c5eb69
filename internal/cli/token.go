package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/domain"
)

func NewTokenCmd(deps *Dependencies) *cobra.Command {
	var userID, email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Long:  "Sign a token with the configured jwt.secret. Use it as 'Authorization: Bearer <token>' or ?token=<token>.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not set")
			}
			id, err := domain.NewIdentity(userID, email)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWT.TTL
			}
			tok, err := auth.Issue(id, []byte(cfg.JWT.Secret), ttl, time.Now())
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (required)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email shown to other participants")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default jwt.ttl)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
