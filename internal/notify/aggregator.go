// Package notify aggregates unread-message notifications for conversations
// that are not open.
package notify

import (
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/session"
)

// Aggregator is the single writer of the store's notification set.
type Aggregator struct {
	store *session.Store
}

// New creates an aggregator over store.
func New(store *session.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Add records a notification for msg unless one with the same message id is
// already pending. New entries go first. It reports whether msg was added.
// The conversation is taken from the message.
func (a *Aggregator) Add(msg models.Message) bool {
	var conv models.Conversation
	if msg.Chat != nil {
		conv = *msg.Chat
	}

	current := a.store.Notifications()
	for _, n := range current {
		if n.Message.ID == msg.ID {
			return false
		}
	}

	next := make([]models.Notification, 0, len(current)+1)
	next = append(next, models.Notification{Message: msg, Conversation: conv})
	next = append(next, current...)
	a.set(next)
	return true
}

// Dismiss removes every notification of a conversation and returns how many
// were removed.
func (a *Aggregator) Dismiss(conversationID string) int {
	return a.remove(func(n models.Notification) bool {
		return n.Conversation.ID == conversationID
	})
}

// DismissOne removes the notification for a single message.
func (a *Aggregator) DismissOne(messageID string) bool {
	return a.remove(func(n models.Notification) bool {
		return n.Message.ID == messageID
	}) > 0
}

// Find returns the pending notification for messageID.
func (a *Aggregator) Find(messageID string) (models.Notification, bool) {
	for _, n := range a.store.Notifications() {
		if n.Message.ID == messageID {
			return n, true
		}
	}
	return models.Notification{}, false
}

func (a *Aggregator) remove(match func(models.Notification) bool) int {
	current := a.store.Notifications()
	kept := make([]models.Notification, 0, len(current))
	for _, n := range current {
		if !match(n) {
			kept = append(kept, n)
		}
	}
	removed := len(current) - len(kept)
	if removed > 0 {
		a.set(kept)
	}
	return removed
}

func (a *Aggregator) set(list []models.Notification) {
	a.store.SetNotifications(list)
	observability.SetNotificationsPending(len(list))
}

// Title is the menu text for n as seen by me.
func Title(n models.Notification, me models.User) string {
	if n.Conversation.IsGroupChat {
		return "New Message in " + n.Conversation.ChatName
	}
	other, _ := n.Conversation.OtherParticipant(me.ID)
	return "New Message from " + other.Name
}
