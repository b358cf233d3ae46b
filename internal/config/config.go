package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken   string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	NotionKey  string `envconfig:"NOTION_API_KEY"`
	NotionDB   string `envconfig:"NOTION_DATABASE_ID"`
	DBPath     string `envconfig:"DB_PATH" default:"./data/mainote.db"`
	RunMode    string `envconfig:"RUN_MODE" default:"polling"` // polling|webhook
	WebhookURL string `envconfig:"WEBHOOK_URL"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr   string `envconfig:"HTTP_ADDR" default:":8080"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	MorningEnabled  bool     `envconfig:"ENABLE_MORNING_NOTIFICATIONS" default:"true"`
	MorningTime     string   `envconfig:"MORNING_NOTIFICATION_TIME" default:"08:00"`
	NotifyChatIDs   []string `envconfig:"NOTIFICATION_CHAT_IDS"`
	SendRate        float64  `envconfig:"SEND_RATE" default:"25"`
	SendConcurrency int      `envconfig:"SEND_CONCURRENCY" default:"8"`
}

// Load reads an optional .env file and then environment variables into Config.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	cfg.NotifyChatIDs = compact(cfg.NotifyChatIDs)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if _, err := domain.ParseTimeOfDay(c.MorningTime); err != nil {
		return fmt.Errorf("MORNING_NOTIFICATION_TIME: %w", err)
	}
	switch c.RunMode {
	case "polling":
	case "webhook":
		if c.WebhookURL == "" {
			return errors.New("WEBHOOK_URL is required in webhook mode")
		}
	default:
		return fmt.Errorf("RUN_MODE: unknown mode %q", c.RunMode)
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("SEND_RATE must be positive, got %v", c.SendRate)
	}
	if c.SendConcurrency <= 0 {
		return fmt.Errorf("SEND_CONCURRENCY must be positive, got %d", c.SendConcurrency)
	}
	return nil
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
