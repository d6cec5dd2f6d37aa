package main

import (
	"errors"
	"fmt"
	"studydrive-downloader/internal/security"

	"github.com/spf13/cobra"
)

var serviceTokenCmd = &cobra.Command{
	Use:   "service-token <client>",
	Short: "Выпустить JWT для сервиса-клиента /api",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.SecretKey == "" {
			return errors.New("не задан auth.secret_key")
		}

		token, err := security.NewJWTService(&cfg.Auth).IssueServiceToken(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
