package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// userKey is the preference store key for a chat.
func userKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// editText replaces the text of the message that carried an inline keyboard.
func (r *Router) editText(chatID int64, msgID int, text string) {
	if _, err := r.bot.Send(tgbotapi.NewEditMessageText(chatID, msgID, text)); err != nil {
		r.log.Warn("edit message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// --- Notes ---

func (r *Router) handleText(ctx context.Context, chatID int64, text string) {
	switch r.takePending(chatID) {
	case pendingTime:
		r.sendText(chatID, r.saveTime(ctx, chatID, text))
	case pendingTZ:
		r.sendText(chatID, r.saveTimezone(ctx, chatID, text))
	default:
		r.createNote(ctx, chatID, text)
	}
}

func (r *Router) createNote(ctx context.Context, chatID int64, text string) {
	r.log.Info("received note", zap.Int64("chat_id", chatID))
	pageID, err := r.notes.CreateNote(ctx, text)
	if err != nil {
		r.log.Error("create note failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.sendText(chatID, noteSaveFailedText)
		return
	}
	r.sendWithKeyboard(chatID, noteSavedText, noteTypeKeyboard(pageID))
}

func (r *Router) handleTypeCallback(ctx context.Context, chatID int64, msgID int, value string) {
	noteType, pageID, ok := strings.Cut(value, ":")
	if !ok || pageID == "" {
		r.log.Warn("invalid type callback data", zap.String("value", value))
		r.editText(chatID, msgID, errorProcessingText)
		return
	}
	if err := r.notes.SetNoteType(ctx, pageID, noteType); err != nil {
		r.log.Error("update note type failed", zap.String("page_id", pageID), zap.Error(err))
		r.editText(chatID, msgID, errorProcessingText)
		return
	}
	r.editText(chatID, msgID, fmt.Sprintf(noteTypeSavedFmt, noteTypeNames[noteType]))
}

func (r *Router) handleMorning(ctx context.Context, chatID int64) {
	text, err := r.notes.MorningMessage(ctx)
	if err != nil {
		r.log.Error("build morning message failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.sendText(chatID, morningFailedText)
		return
	}
	r.sendText(chatID, text)
	r.log.Info("sent manual morning notification", zap.Int64("chat_id", chatID))
}

// --- Notification time flow ---

func (r *Router) handleSetTime(ctx context.Context, chatID int64, arg string) {
	if arg != "" {
		if _, err := domain.ParseTimeOfDay(arg); err == nil {
			r.sendText(chatID, r.saveTime(ctx, chatID, arg))
			return
		}
		r.sendText(chatID, timeInvalidText)
	}

	pref, err := r.prefs.Get(ctx, userKey(chatID))
	if err != nil {
		r.log.Warn("read preferences failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	current := currentOr(timeCurrentFmt, pref.NotificationTime, timeNotSet)
	r.sendWithKeyboard(chatID, fmt.Sprintf(timePromptFmt, current), timePresetsKeyboard())
}

func (r *Router) handleTimeCallback(ctx context.Context, chatID int64, msgID int, value string) {
	if value != cbCustom {
		r.editText(chatID, msgID, r.saveTime(ctx, chatID, value))
		return
	}
	if _, ok := r.userZone(ctx, chatID); !ok {
		r.editText(chatID, msgID, timezoneRequired)
		return
	}
	r.setPending(chatID, pendingTime)
	r.editText(chatID, msgID, timeCustomPrompt)
}

// saveTime validates and stores a notification time and returns the reply.
// A timezone must be set first so the time is read as local.
func (r *Router) saveTime(ctx context.Context, chatID int64, value string) string {
	tod, err := domain.ParseTimeOfDay(value)
	if err != nil {
		return timeInvalidText
	}
	tz, ok := r.userZone(ctx, chatID)
	if !ok {
		return timezoneRequired
	}
	loc, err := r.zones.Resolve(tz)
	if err != nil {
		return timezoneRequired
	}

	t := tod.String()
	if err := r.prefs.Set(ctx, userKey(chatID), domain.PreferenceUpdate{NotificationTime: &t}); err != nil {
		r.log.Error("save notification time failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return timeSaveFailed
	}
	r.log.Info("set notification time", zap.Int64("chat_id", chatID), zap.String("time", t), zap.String("tz", tz))
	r.sched.RequestRecalculation()

	return fmt.Sprintf(timeSavedFmt, t, tz, domain.FormatUTCOffset(r.now(), loc), t)
}

func (r *Router) userZone(ctx context.Context, chatID int64) (string, bool) {
	pref, err := r.prefs.Get(ctx, userKey(chatID))
	if err != nil {
		r.log.Warn("read preferences failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "", false
	}
	return pref.Timezone, pref.Timezone != ""
}

// --- Timezone flow ---

func (r *Router) handleSetTimezone(ctx context.Context, chatID int64, arg string) {
	if arg != "" {
		r.sendText(chatID, r.saveTimezone(ctx, chatID, arg))
		return
	}
	tz, _ := r.userZone(ctx, chatID)
	current := currentOr(tzCurrentFmt, tz, tzNotSet)
	r.sendWithKeyboard(chatID, fmt.Sprintf(tzPromptFmt, current), tzPresetsKeyboard())
}

func (r *Router) handleTimezoneCallback(ctx context.Context, chatID int64, msgID int, value string) {
	if value == cbCustom {
		r.setPending(chatID, pendingTZ)
		r.editText(chatID, msgID, tzCustomPrompt)
		return
	}
	r.editText(chatID, msgID, r.saveTimezone(ctx, chatID, value))
}

func (r *Router) handleLocation(ctx context.Context, chatID int64, longitude float64) {
	r.clearPending(chatID)
	tz := domain.ZoneFromLongitude(longitude)
	r.log.Info("timezone from location", zap.Int64("chat_id", chatID), zap.Float64("longitude", longitude), zap.String("tz", tz))
	r.sendText(chatID, r.saveTimezone(ctx, chatID, tz))
}

// saveTimezone validates and stores a zone name and returns the reply.
func (r *Router) saveTimezone(ctx context.Context, chatID int64, name string) string {
	tz, err := domain.ValidateTZ(r.zones, name)
	if err != nil {
		r.log.Info("rejected timezone", zap.Int64("chat_id", chatID), zap.String("tz", name), zap.Error(err))
		return tzInvalidText
	}
	loc, err := r.zones.Resolve(tz)
	if err != nil {
		return tzInvalidText
	}

	if err := r.prefs.Set(ctx, userKey(chatID), domain.PreferenceUpdate{Timezone: &tz}); err != nil {
		r.log.Error("save timezone failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return tzSaveFailed
	}
	r.log.Info("set timezone", zap.Int64("chat_id", chatID), zap.String("tz", tz))
	r.sched.RequestRecalculation()

	now := r.now()
	return fmt.Sprintf(tzSavedFmt, tz, domain.FormatUTCOffset(now, loc), domain.LocalizeTime(now, loc))
}
