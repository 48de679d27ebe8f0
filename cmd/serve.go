package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/readbot/internal/bot"
	"github.com/example/readbot/internal/scheduler"
	"github.com/spf13/cobra"
)

// serveCmd runs the Telegram bot and the reminder scheduler
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Telegram bot and reminder jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		svc, err := newJournal(store)
		if err != nil {
			return err
		}

		pollTimeout, _ := cmd.Flags().GetInt("poll-timeout")
		b, err := bot.New(bot.Config{
			Token:       cfg.TelegramToken,
			PollTimeout: pollTimeout,
		}, svc, logger.WithField("component", "bot"))
		if err != nil {
			return err
		}

		if cfg.EnableScheduler {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			sched, err := scheduler.New(store, b, scheduler.Config{
				Location:          loc,
				ReadingReminderAt: cfg.ReadingReminderAt,
				ReviewReminderAt:  cfg.ReviewReminderAt,
				NoteDigestAt:      cfg.NoteDigestAt,
				RatePerSec:        cfg.NotifyRatePerSec,
			}, logger.WithField("component", "scheduler"))
			if err != nil {
				return fmt.Errorf("scheduler: %w", err)
			}
			sched.Start()
			defer sched.Stop()
		}

		logger.Info("Bot started. Press Ctrl+C to stop.")
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("Bot stopped successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("poll-timeout", 60, "long polling timeout in seconds")
}
