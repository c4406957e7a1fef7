// Package bot implements lifecycle management and component orchestration
// for the scribebot Telegram bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// Runner is a component that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	tgBot      *tgbot.Bot
	scheduler  *Scheduler
	dispatcher *Dispatcher
	dashboard  Runner
}

// NewBot creates the orchestrator. dashboard may be nil when disabled.
func NewBot(
	logger *slog.Logger,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
	dispatcher *Dispatcher,
	dashboard Runner,
) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		tgBot:      tgBot,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		dashboard:  dashboard,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// In-flight handler jobs are drained before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.dashboard != nil {
		g.Go(func() error {
			return b.dashboard.Run(gCtx)
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	b.logger.Info("Waiting for in-flight handler jobs...")
	b.dispatcher.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
