package app

import (
	"context"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/ws"
)

// EventChannel is the event channel contract the client drives.
type EventChannel interface {
	Connect(ctx context.Context, user models.User) error
	Connected() bool
	Subscribe(kind ws.EventKind, handler ws.Handler)
	JoinRoom(conversationID string) error
	LeaveRoom(conversationID string) error
	EmitTyping(conversationID string, isTyping bool) error
	EmitMessage(msg models.Message) error
	Close() error
}

// sessionChannel forwards to the current session's channel. Engine components
// keep a single reference while the underlying connection is replaced on every
// login and dropped on logout.
type sessionChannel struct {
	mu  sync.RWMutex
	cur EventChannel
}

func (s *sessionChannel) swap(next EventChannel) EventChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = next
	return prev
}

func (s *sessionChannel) current() EventChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *sessionChannel) Connected() bool {
	ch := s.current()
	return ch != nil && ch.Connected()
}

func (s *sessionChannel) JoinRoom(conversationID string) error {
	if ch := s.current(); ch != nil {
		return ch.JoinRoom(conversationID)
	}
	return ws.ErrNotConnected
}

func (s *sessionChannel) LeaveRoom(conversationID string) error {
	if ch := s.current(); ch != nil {
		return ch.LeaveRoom(conversationID)
	}
	return ws.ErrNotConnected
}

func (s *sessionChannel) EmitTyping(conversationID string, isTyping bool) error {
	if ch := s.current(); ch != nil {
		return ch.EmitTyping(conversationID, isTyping)
	}
	return ws.ErrNotConnected
}

func (s *sessionChannel) EmitMessage(msg models.Message) error {
	if ch := s.current(); ch != nil {
		return ch.EmitMessage(msg)
	}
	return ws.ErrNotConnected
}
