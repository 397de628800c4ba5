package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meetuphere/config"
	"meetuphere/internal/adapters/auth"
)

func tokenCmd() *cobra.Command {
	var (
		fid string
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the phone registration endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(fid, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&fid, "fid", "", "check-in owner id to use as token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("fid")
	return cmd
}
