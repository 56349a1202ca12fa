package main

import (
	"fmt"
	"time"

	"examsim/internal/config"
	"examsim/internal/service"

	"github.com/spf13/cobra"
)

var (
	tokenUser int
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a student access token signed with JWT_SECRET (local development)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser <= 0 {
			return fmt.Errorf("--user must be a positive student id")
		}
		cfg := config.Load()
		token, err := service.NewAuthService(cfg.JWTSecret).GenerateStudentToken(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().IntVar(&tokenUser, "user", 0, "student user id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
