package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/features/admin"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
)

func init() {
	rootCmd.AddCommand(hashPasswordCmd, checkRewardsCmd)
}

// Результат вставьте в .env как ADMIN_PASSWORD_HASH.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <пароль>",
	Short: "Сгенерировать Argon2id-хеш пароля админ-панели",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := admin.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var checkRewardsCmd = &cobra.Command{
	Use:   "check-rewards [путь]",
	Short: "Проверить rewards.toml и показать сводку",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "rewards.toml"
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := config.LoadRewards(path)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rewards.Compile(cfg).Summary())
		return nil
	},
}
