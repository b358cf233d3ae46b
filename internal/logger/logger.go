package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// WithSentry reports every error-level entry of log to hub. Structured
// fields travel with the event, and an error field becomes its exception.
func WithSentry(log *zap.Logger, hub *sentry.Hub) *zap.Logger {
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &sentryCore{hub: hub})
	}))
}

type sentryCore struct {
	hub    *sentry.Hub
	fields []zapcore.Field
}

func (c *sentryCore) Enabled(l zapcore.Level) bool {
	return l >= zapcore.ErrorLevel
}

func (c *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	return &sentryCore{hub: c.hub, fields: append(c.fields[:len(c.fields):len(c.fields)], fields...)}
}

func (c *sentryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *sentryCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var cause error
	for _, f := range append(c.fields[:len(c.fields):len(c.fields)], fields...) {
		if f.Type == zapcore.ErrorType && cause == nil {
			cause, _ = f.Interface.(error)
		}
		f.AddTo(enc)
	}

	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = e.Message
	event.Timestamp = e.Time
	if cause != nil {
		event.Exception = []sentry.Exception{{Type: fmt.Sprintf("%T", cause), Value: cause.Error()}}
	}
	if len(enc.Fields) > 0 {
		event.Contexts["log"] = enc.Fields
	}

	c.hub.WithScope(func(scope *sentry.Scope) {
		if e.Caller.Defined {
			scope.SetTag("caller", e.Caller.TrimmedPath())
		}
		if e.LoggerName != "" {
			scope.SetTag("logger", e.LoggerName)
		}
		if id, ok := enc.Fields["user_id"].(string); ok {
			scope.SetTag("user_id", id)
		}
		c.hub.CaptureEvent(event)
	})
	return nil
}

func (c *sentryCore) Sync() error {
	c.hub.Flush(2 * time.Second)
	return nil
}
