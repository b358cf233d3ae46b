package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	webhookPath       = "/webhook"
	webhookAttempts   = 3
	webhookRetryDelay = 5 * time.Second
)

var errWebhookMismatch = errors.New("webhook url mismatch")

type webhookAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// webhookURL joins the public base URL with the update path.
func webhookURL(base string) string {
	return strings.TrimRight(base, "/") + webhookPath
}

// setWebhook replaces the registered webhook and checks that Telegram reports
// the new URL, retrying a few times.
func setWebhook(ctx context.Context, bot webhookAPI, url string, delay time.Duration, log *zap.Logger) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= webhookAttempts; attempt++ {
		lastErr = trySetWebhook(bot, wh, url)
		if lastErr == nil {
			log.Info("webhook set", zap.String("url", url))
			return nil
		}
		log.Warn("webhook setup failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", webhookAttempts),
			zap.Error(lastErr),
		)
		if attempt == webhookAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("set webhook after %d attempts: %w", webhookAttempts, lastErr)
}

func trySetWebhook(bot webhookAPI, wh tgbotapi.WebhookConfig, url string) error {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	info, err := bot.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.URL != url {
		return fmt.Errorf("%w: want %q, got %q", errWebhookMismatch, url, info.URL)
	}
	return nil
}

type updateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// webhookHandler decodes Telegram updates and queues them for the update loop.
func webhookHandler(bot updateDecoder, updates chan<- tgbotapi.Update, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upd, err := bot.HandleUpdate(r)
		if err != nil {
			log.Warn("bad webhook update", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		}
	}
}
