package main

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/app"
	"github.com/nipisarev/mainote-bot/internal/config"
	"github.com/nipisarev/mainote-bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; exit immediately.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.Warn("sentry init failed", zap.Error(err))
		} else {
			log = logger.WithSentry(log, sentry.CurrentHub())
			defer sentry.Flush(2 * time.Second)
		}
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("app init failed", zap.Error(err))
	}

	if err := application.Run(context.Background()); err != nil {
		log.Error("app run failed", zap.Error(err))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}
