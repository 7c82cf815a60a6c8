// Package main — точка входа бота.
// Без подкоманды запускает бота, остальные подкоманды — служебные утилиты.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/rewards-bot/internal/app"
	"serotonyl.ru/rewards-bot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "rewards-bot",
	Short:         "Telegram-бот ежедневных наград",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

func main() {
	setupLogging()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	log.Info("=== Бот запускается ===")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	// Отменяется по Ctrl+C или docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	log.Info("=== Бот готов к работе ===")
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("=== Бот остановлен ===")
	return nil
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
