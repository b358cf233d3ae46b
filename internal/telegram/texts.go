package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nipisarev/mainote-bot/internal/notion"
)

// UI texts in English
const (
	startText = "👋 Hi! I save your notes to Notion.\n\n" +
		"Just send me any text and I will store it as a note.\n" +
		"After saving you can mark it as:\n" +
		"💡 Idea\n" +
		"✅ Task\n" +
		"🏖 Personal"
	helpText = "📝 How to use the bot:\n\n" +
		"1. Send any text and it is saved as a note\n" +
		"2. Pick a note type\n" +
		"3. Done! The note shows up in your Notion\n\n" +
		"Commands:\n" +
		"/start - start working with the bot\n" +
		"/help - show this message\n" +
		"/morning - get the morning plan now\n" +
		"/settime - set the morning notification time (or directly: /settime 07:30)\n" +
		"/settimezone - set your timezone (or directly: /settimezone Europe/Moscow)\n\n" +
		"You can also share your location to set the timezone."
	unknownCommandText = "Unknown command. See /help."

	noteSavedText      = "Note added to Notion 📘\nMark it as:"
	noteSaveFailedText = "Could not save the note. Please try again later."
	noteTypeSavedFmt   = "Note saved as %s 👍"

	morningFailedText = "Could not load the morning plan. Please try again later."

	timePromptFmt    = "⏰ Choose the morning notification time or send /settime HH:MM for any other time.\n\n%s"
	timeCurrentFmt   = "Current notification time: %s"
	timeNotSet       = "Notification time is not set"
	timeCustomPrompt = "Enter the time as HH:MM (for example, 07:45):"
	timeInvalidText  = "Invalid time format. Please use HH:MM (for example, 08:00)."
	timeSavedFmt     = "⏰ Morning notifications are set to %s (%s, %s).\n\nYou will get them every day at %s your local time."
	timeSaveFailed   = "Could not save the notification time. Please try again later."
	timezoneRequired = "⚠️ Notifications need a timezone first.\n\n" +
		"Please use /settimezone or share your location."

	tzPromptFmt    = "🌐 Choose your timezone for notifications:\n\n%s"
	tzCurrentFmt   = "Current timezone: %s"
	tzNotSet       = "Timezone is not set"
	tzCustomPrompt = "Enter the timezone as Region/City (for example, Europe/Moscow):"
	tzInvalidText  = "Unknown timezone. Pick one of the options or enter a name like Europe/Moscow."
	tzSavedFmt     = "🌐 Timezone set to %s (%s, your time now is %s).\n\nNotifications will now follow your local time."
	tzSaveFailed   = "Could not save the timezone. Please try again later."

	errorProcessingText = "Something went wrong while processing your request."
)

var noteTypeNames = map[string]string{
	notion.TypeIdea:     "Idea",
	notion.TypeTask:     "Task",
	notion.TypePersonal: "Personal",
}

type zonePreset struct {
	name  string
	label string
}

var zonePresets = []zonePreset{
	{"Europe/Kaliningrad", "Kaliningrad (UTC+2)"},
	{"Europe/Moscow", "Moscow (UTC+3)"},
	{"Europe/Samara", "Samara (UTC+4)"},
	{"Asia/Yekaterinburg", "Yekaterinburg (UTC+5)"},
	{"Asia/Omsk", "Omsk (UTC+6)"},
	{"Asia/Krasnoyarsk", "Krasnoyarsk (UTC+7)"},
	{"Asia/Irkutsk", "Irkutsk (UTC+8)"},
	{"Asia/Yakutsk", "Yakutsk (UTC+9)"},
	{"Asia/Vladivostok", "Vladivostok (UTC+10)"},
	{"Asia/Magadan", "Magadan (UTC+11)"},
	{"Asia/Kamchatka", "Kamchatka (UTC+12)"},
}

var timePresets = [][]string{
	{"06:00", "07:00", "08:00"},
	{"09:00", "10:00", "11:00"},
	{"12:00", "14:00", "16:00"},
	{"18:00", "20:00", "22:00"},
}

// Inline keyboards

func noteTypeKeyboard(pageID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💡 Idea", cbType+notion.TypeIdea+":"+pageID),
			tgbotapi.NewInlineKeyboardButtonData("✅ Task", cbType+notion.TypeTask+":"+pageID),
			tgbotapi.NewInlineKeyboardButtonData("🏖 Personal", cbType+notion.TypePersonal+":"+pageID),
		),
	)
}

func timePresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(timePresets)+1)
	for _, presets := range timePresets {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(presets))
		for _, t := range presets {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(t, cbTime+t))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", cbTime+cbCustom),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(zonePresets)+1)
	for _, z := range zonePresets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(z.label, cbTimezone+z.name),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Other…", cbTimezone+cbCustom),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func currentOr(format, value, unset string) string {
	if value == "" {
		return unset
	}
	return fmt.Sprintf(format, value)
}
