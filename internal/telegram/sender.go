package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers scheduled notifications under the Bot API broadcast limit.
// It is safe for concurrent use.
type Sender struct {
	bot     BotAPI
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewSender allows at most perSecond messages per second across all chats.
func NewSender(bot BotAPI, perSecond float64, log *zap.Logger) *Sender {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log,
	}
}

// SendMessage sends text to the chat identified by userID.
func (s *Sender) SendMessage(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", userID, err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	s.log.Debug("notification sent", zap.String("user_id", userID))
	return nil
}
