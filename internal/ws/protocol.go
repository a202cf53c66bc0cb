package ws

import (
	"encoding/json"

	"chat-client/internal/models"
)

// Wire event names understood by the broker.
const (
	EventSetup           = "setup"
	EventConnectedAck    = "connected"
	EventJoinChat        = "join chat"
	EventLeaveChat       = "leave chat"
	EventNewMessage      = "new message"
	EventMessageRecieved = "message recieved"
	EventTyping          = "typing"
	EventStoppedTyping   = "stoppedTyping"
)

// Frame is one JSON websocket frame.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventKind identifies an inbound event delivered to subscribers.
type EventKind string

const (
	Connected       EventKind = "connected"
	MessageReceived EventKind = "messageReceived"
	TypingStarted   EventKind = "typingStarted"
	TypingStopped   EventKind = "typingStopped"
)

// Event is a decoded inbound frame. ConversationID is empty for connected and
// for typing frames sent without a room id.
type Event struct {
	Kind           EventKind
	ConversationID string
	Message        *models.Message
}

// Handler receives inbound events. Handlers run on the reader goroutine.
type Handler func(Event)

func newFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// decodeFrame maps a wire frame to an Event. ok is false for events the client
// does not consume.
func decodeFrame(f Frame) (Event, bool, error) {
	switch f.Event {
	case EventConnectedAck:
		return Event{Kind: Connected}, true, nil
	case EventMessageRecieved:
		var msg models.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return Event{}, false, err
		}
		return Event{Kind: MessageReceived, ConversationID: msg.ConversationID(), Message: &msg}, true, nil
	case EventTyping, EventStoppedTyping:
		kind := TypingStarted
		if f.Event == EventStoppedTyping {
			kind = TypingStopped
		}
		var room string
		if len(f.Data) > 0 && string(f.Data) != "null" {
			if err := json.Unmarshal(f.Data, &room); err != nil {
				return Event{}, false, err
			}
		}
		return Event{Kind: kind, ConversationID: room}, true, nil
	default:
		return Event{}, false, nil
	}
}
