package logger

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		log, err := New(in)
		require.NoError(t, err, in)
		assert.True(t, log.Core().Enabled(want), in)
		if want > zapcore.DebugLevel {
			assert.False(t, log.Core().Enabled(want-1), in)
		}
	}
}

func TestWithSentry_ForwardsErrors(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	log := WithSentry(zap.NewExample(), hub).Named("scheduler")
	log.Info("notifications sent")
	log.Warn("read timezone failed")
	log.Error("scheduler iteration failed", zap.String("phase", "plan"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "scheduler iteration failed", events[0].Message)
	assert.Equal(t, sentry.LevelError, events[0].Level)
	assert.Equal(t, "scheduler", events[0].Tags["logger"])
}

func TestWithSentry_CarriesFieldsAndCause(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	log := WithSentry(zap.NewNop(), hub).With(zap.String("component", "dispatch"))
	log.Error("send notification failed", zap.String("user_id", "42"), zap.Error(errors.New("chat not found")))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "send notification failed", ev.Message)
	require.Len(t, ev.Exception, 1)
	assert.Equal(t, "chat not found", ev.Exception[0].Value)
	assert.Equal(t, "42", ev.Tags["user_id"])
	require.Contains(t, ev.Contexts, "log")
	assert.Equal(t, "dispatch", ev.Contexts["log"]["component"])
	assert.Equal(t, "chat not found", ev.Contexts["log"]["error"])
}
