package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vet-clinic-records/internal/adapters/auth/jwt"
	"vet-clinic-records/internal/ports/auth"
)

// tokenCmd emite un token HS256 para staff (dev / scripts).
func tokenCmd() *cobra.Command {
	var (
		claims auth.Claims
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token signed with AUTH_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AuthJWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			tok, err := jwt.Sign(jwt.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthIssuer}, claims, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "user", "", "staff user id (sub)")
	cmd.Flags().StringVar(&claims.Email, "email", "", "staff email")
	cmd.Flags().StringVar(&claims.Role, "role", "vet", "staff role")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
