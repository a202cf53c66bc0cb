package chatlist

import (
	"time"

	"chat-client/internal/models"
)

// PreviewLength is the number of characters of the latest message shown in
// the list before it is cut with an ellipsis.
const PreviewLength = 30

// Preview renders the list entry's latest-message line.
func Preview(conv models.Conversation, me models.User) string {
	latest := conv.LatestMessage
	if latest == nil {
		return ""
	}

	content := latest.Content
	if runes := []rune(content); len(runes) > PreviewLength {
		content = string(runes[:PreviewLength]) + "..."
	}

	if latest.Sender.ID == me.ID {
		return "You: " + content
	}
	return latest.Sender.Name + ": " + content
}

// FormatTime renders a message timestamp relative to now: clock time within a
// day, weekday and clock time within a week, a date otherwise.
func FormatTime(t, now time.Time) string {
	age := now.Sub(t)
	t = t.In(now.Location())
	switch {
	case age < 24*time.Hour:
		return t.Format("15:04")
	case age < 7*24*time.Hour:
		return t.Format("Monday, 15:04")
	default:
		return t.Format("1/2/2006")
	}
}

// DisplayName is the group name, or the peer's name for a direct chat.
func DisplayName(conv models.Conversation, me models.User) string {
	if conv.IsGroupChat {
		return conv.ChatName
	}
	if other, ok := conv.OtherParticipant(me.ID); ok {
		return other.Name
	}
	return conv.ChatName
}
