// Package main contains the entrypoint for the scribebot Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/scribebot/internal/bot"
	"github.com/edgard/scribebot/internal/bot/handlers"
	"github.com/edgard/scribebot/internal/bot/tasks"
	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/dashboard"
	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/gemini"
	"github.com/edgard/scribebot/internal/logger"
	"github.com/edgard/scribebot/internal/ocr"
	"github.com/edgard/scribebot/internal/pipeline"
	"github.com/edgard/scribebot/internal/search"
	"github.com/edgard/scribebot/internal/sentiment"
	"github.com/edgard/scribebot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, runs the bot until ctx is cancelled and returns
// the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	extractor, err := ocr.NewExtractor(cfg.OCR, log)
	if err != nil {
		log.Error("Failed to initialize OCR extractor", "scratch_dir", cfg.OCR.ScratchDir, "error", err)
		return 1
	}

	proc := pipeline.New(pipeline.Deps{
		Logger:          log,
		Store:           store,
		Gemini:          gemClient,
		Sentiment:       sentiment.NewVaderAnalyzer(),
		Search:          search.NewClient(cfg.Search, log),
		OCR:             extractor,
		Scratch:         extractor.Scratch(),
		Messages:        cfg.Messages,
		MaxLinks:        cfg.Search.MaxLinks,
		PerMessage:      cfg.Persistence.PerMessage(),
		DBTimeout:       cfg.Database.OperationTimeout,
		DownloadTimeout: cfg.Telegram.DownloadTimeout,
		SendTimeout:     cfg.Telegram.SendTimeout,
	})
	dispatcher := bot.NewDispatcher(log, cfg.Telegram.MaxConcurrentHandlers, cfg.Telegram.HandlerTimeout)

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Pipeline:   proc,
		Dispatcher: dispatcher,
	}
	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Scratch: extractor.Scratch(),
		Config:  cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.DefaultHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.PublishCommands(ctx, tg, cmdHandlers); err != nil {
		log.Warn("Failed to publish bot commands", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var dash bot.Runner
	if cfg.Dashboard.Enabled {
		dash = dashboard.NewServer(cfg.Dashboard, store, log)
	}
	app := bot.NewBot(log, tg, sched, dispatcher, dash)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
