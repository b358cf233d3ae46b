package notion

import (
	"fmt"
	"strings"
)

const (
	morningHeader = "🌅 Good morning! Here is your plan for today:\n\n"
	morningFooter = "\nHave a great and productive day! 💪"
	morningEmpty  = "Good morning! You have no active tasks for today. Have a nice day! 🌞"
	untitled      = "Untitled"
)

var typeEmoji = map[string]string{
	TypeIdea:     "💡",
	TypeTask:     "✅",
	TypePersonal: "🏖",
}

// FormatMorningMessage renders tasks as a numbered list.
func FormatMorningMessage(tasks []Task) string {
	if len(tasks) == 0 {
		return morningEmpty
	}

	var b strings.Builder
	b.WriteString(morningHeader)
	for i, t := range tasks {
		emoji, ok := typeEmoji[t.Type]
		if !ok {
			emoji = "📝"
		}
		title := t.Title
		if title == "" {
			title = untitled
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, emoji, title)
	}
	b.WriteString(morningFooter)
	return b.String()
}
