package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// Pending state keys used in conversational flows.
const (
	pendingTime = "await_time_text"
	pendingTZ   = "await_tz_text"
)

// Callback data prefixes.
const (
	cbType     = "type:"
	cbTime     = "time:"
	cbTimezone = "timezone:"
	cbCustom   = "custom"
)

// BotAPI is the part of *tgbotapi.BotAPI the package uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notes is the document store behind free-text messages and /morning.
type Notes interface {
	CreateNote(ctx context.Context, text string) (string, error)
	SetNoteType(ctx context.Context, pageID, noteType string) error
	MorningMessage(ctx context.Context) (string, error)
}

// Preferences reads and writes per-user notification settings.
type Preferences interface {
	Get(ctx context.Context, userID string) (domain.Preference, error)
	Set(ctx context.Context, userID string, upd domain.PreferenceUpdate) error
}

// Recalculator is notified after every successful preference change.
type Recalculator interface {
	RequestRecalculation()
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot   BotAPI
	log   *zap.Logger
	notes Notes
	prefs Preferences
	zones domain.ZoneResolver
	sched Recalculator
	now   func() time.Time

	state map[int64]string // chatID -> pending state
	mu    sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot BotAPI, log *zap.Logger, notes Notes, prefs Preferences, zones domain.ZoneResolver, sched Recalculator) *Router {
	return &Router{
		bot:   bot,
		log:   log,
		notes: notes,
		prefs: prefs,
		zones: zones,
		sched: sched,
		now:   time.Now,
		state: make(map[int64]string),
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// takePending returns and clears the pending state for a chat.
func (r *Router) takePending(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state[chatID]
	delete(r.state, chatID)
	return s
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil && upd.Message.Chat != nil {
		msg := upd.Message
		chatID := msg.Chat.ID

		if msg.Location != nil {
			r.handleLocation(ctx, chatID, msg.Location.Longitude)
			return
		}

		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		cmd, arg, ok := parseCommand(text)
		if !ok {
			r.handleText(ctx, chatID, text)
			return
		}
		// any command abandons a pending custom-input flow
		r.clearPending(chatID)

		switch cmd {
		case "/start":
			r.sendText(chatID, startText)
		case "/help":
			r.sendText(chatID, helpText)
		case "/morning":
			r.handleMorning(ctx, chatID)
		case "/settime":
			r.handleSetTime(ctx, chatID, arg)
		case "/settimezone":
			r.handleSetTimezone(ctx, chatID, arg)
		default:
			r.sendText(chatID, unknownCommandText)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		_ = r.answerCallback(cb.ID, "")
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID

		switch {
		case strings.HasPrefix(cb.Data, cbType):
			r.handleTypeCallback(ctx, chatID, msgID, strings.TrimPrefix(cb.Data, cbType))
		case strings.HasPrefix(cb.Data, cbTime):
			r.handleTimeCallback(ctx, chatID, msgID, strings.TrimPrefix(cb.Data, cbTime))
		case strings.HasPrefix(cb.Data, cbTimezone):
			r.handleTimezoneCallback(ctx, chatID, msgID, strings.TrimPrefix(cb.Data, cbTimezone))
		default:
			r.log.Warn("unrecognized callback data", zap.String("data", cb.Data))
			r.editText(chatID, msgID, errorProcessingText)
		}
	}
}

// parseCommand splits "/cmd@bot arg" into "/cmd" and "arg".
func parseCommand(text string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}
