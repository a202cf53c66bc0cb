package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Message is an immutable chat message. Sender and Chat are populated by the server.
type Message struct {
	ID        string        `json:"_id"`
	Sender    User          `json:"sender"`
	Content   string        `json:"content"`
	Chat      *Conversation `json:"chat,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// UnmarshalJSON accepts chat either populated or as a bare id, which is how
// the server embeds it inside a conversation's latestMessage.
func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	var raw struct {
		plain
		Chat json.RawMessage `json:"chat"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Message(raw.plain)
	m.Chat = nil

	chat := bytes.TrimSpace(raw.Chat)
	switch {
	case len(chat) == 0 || bytes.Equal(chat, []byte("null")):
	case chat[0] == '"':
		var id string
		if err := json.Unmarshal(chat, &id); err != nil {
			return err
		}
		m.Chat = &Conversation{ID: id}
	default:
		var conv Conversation
		if err := json.Unmarshal(chat, &conv); err != nil {
			return err
		}
		m.Chat = &conv
	}
	return nil
}

// ConversationID returns the id of the conversation the message belongs to.
func (m Message) ConversationID() string {
	if m.Chat == nil {
		return ""
	}
	return m.Chat.ID
}

// SenderID returns the id of the author.
func (m Message) SenderID() string {
	return m.Sender.ID
}

// Notification marks an unread message for a conversation that is not open.
type Notification struct {
	Message      Message      `json:"message"`
	Conversation Conversation `json:"conversation"`
}
