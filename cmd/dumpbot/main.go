package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dumpbot/internal/bot"
	"dumpbot/internal/config"
	"dumpbot/internal/health"
	"dumpbot/internal/repository"
	"dumpbot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}

	logger := newLogger(cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	bindingRepo := repository.NewBindingRepository(db)
	registrySvc := service.NewRegistry(bindingRepo)
	healthSvc := service.NewHealth(bindingRepo)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot api")
	}

	relaySvc := service.NewRelay(api, logger)
	telegramBot := bot.New(api, registrySvc, relaySvc, healthSvc, logger)

	probe := health.NewServer(cfg.HTTPPort, healthSvc.Check, logger)
	go func() {
		if err := probe.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("health endpoint stopped")
		}
	}()

	scheduler := service.NewScheduler(time.Local)
	if cfg.HeartbeatInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.HeartbeatInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := healthSvc.Check(jobCtx); err != nil {
				logger.Error().Err(err).Msg("store heartbeat failed")
			} else {
				logger.Debug().Msg("store heartbeat ok")
			}
		}); err != nil {
			logger.Fatal().Err(err).Msg("schedule heartbeat")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	logger.Info().Int("http_port", cfg.HTTPPort).Msg("dump bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}
