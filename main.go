package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/ciftci-pazari-bot/internal/api"
	"github.com/raine/ciftci-pazari-bot/internal/bot"
	"github.com/raine/ciftci-pazari-bot/internal/config"
	"github.com/raine/ciftci-pazari-bot/internal/reminder"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "ciftci-pazari-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it, and ProtectSystem=strict
	// makes the working directory read-only).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	verifier, err := verify.New(ctx, verify.Config{
		APIKey:           cfg.GeminiAPIKey,
		BaseURL:          cfg.ServerBaseURL,
		Model:            cfg.GeminiModel,
		StructuredOutput: cfg.StructuredOutput,
		FetchTimeout:     cfg.ImageTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize verifier")
	}
	verifier = verifier.WithCache(store)
	if verifier.Configured() {
		log.Info().Msg("product verification enabled")
	} else {
		log.Warn().Msg("GEMINI_API_KEY is not set, every product will be rejected by verification")
	}

	g, ctx := errgroup.WithContext(ctx)

	var notifier reminder.Notifier
	var telegramBot *bot.Bot
	if cfg.BotEnabled() {
		tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize telegram bot")
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		// Register bot commands for Telegram's command menu
		bot.RegisterCommands(tg)

		telegramBot = bot.NewBot(tg, store, verifier, cfg.AdminID, cfg.Categories)
		notifier = telegramBot
		g.Go(func() error {
			return runBot(ctx, tg, telegramBot)
		})
	} else {
		log.Info().Msg("BOT_TOKEN or ADMIN_TELEGRAM_ID not set, telegram bot disabled")
	}

	if cfg.APIEnabled() {
		server := api.NewServer(verifier, store)
		if telegramBot != nil {
			server.WithNotifier(telegramBot)
		}
		g.Go(func() error {
			return server.Run(ctx, cfg.HTTPAddr)
		})
	}

	// Run reminder service for pending products and cache pruning
	reminderService := reminder.NewService(store, notifier)
	g.Go(func() error {
		reminderService.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
