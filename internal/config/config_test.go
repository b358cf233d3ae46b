package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// inTempDir runs the test from an empty directory so no .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "polling", cfg.RunMode)
	assert.Equal(t, "08:00", cfg.MorningTime)
	assert.True(t, cfg.MorningEnabled)
	assert.Empty(t, cfg.NotifyChatIDs)
	assert.Equal(t, 25.0, cfg.SendRate)
	assert.Equal(t, 8, cfg.SendConcurrency)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_RequiresToken(t *testing.T) {
	inTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ChatIDsAndFlags(t *testing.T) {
	inTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("NOTIFICATION_CHAT_IDS", "100, 200,,300")
	t.Setenv("ENABLE_MORNING_NOTIFICATIONS", "false")
	t.Setenv("MORNING_NOTIFICATION_TIME", "07:15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "200", "300"}, cfg.NotifyChatIDs)
	assert.False(t, cfg.MorningEnabled)
	assert.Equal(t, "07:15", cfg.MorningTime)
}

func TestLoad_InvalidMorningTime(t *testing.T) {
	inTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("MORNING_NOTIFICATION_TIME", "8am")

	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidTimeFormat)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TELEGRAM_BOT_TOKEN=from-file\nNOTION_DATABASE_ID=db-42\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("NOTION_DATABASE_ID") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.BotToken, "environment wins over .env")
	assert.Equal(t, "db-42", cfg.NotionDB)
}

func TestValidate(t *testing.T) {
	base := Config{BotToken: "123:abc", RunMode: "polling", MorningTime: "08:00", SendRate: 25, SendConcurrency: 8}
	require.NoError(t, base.Validate())

	webhook := base
	webhook.RunMode = "webhook"
	assert.Error(t, webhook.Validate(), "webhook needs a URL")
	webhook.WebhookURL = "https://bot.example.com"
	assert.NoError(t, webhook.Validate())

	bad := base
	bad.RunMode = "longpoll"
	assert.Error(t, bad.Validate())

	bad = base
	bad.SendRate = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.SendConcurrency = -1
	assert.Error(t, bad.Validate())
}
