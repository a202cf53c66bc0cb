// Package session holds the process-wide client state read by the control API.
//
// Every field has exactly one writer: the user is set by the client façade,
// conversations and selection by the conversation list synchronizer, and
// notifications by the notification aggregator. Writers run on the event loop;
// readers may run anywhere and receive copies.
package session

import (
	"sync"

	"chat-client/internal/models"
)

// SelectionListener is called on the writer's goroutine after the selection
// changed. prev or next may be nil.
type SelectionListener func(prev, next *models.Conversation)

// Store is the session state.
type Store struct {
	mu            sync.RWMutex
	user          *models.User
	conversations []models.Conversation
	selected      *models.Conversation
	notifications []models.Notification

	listeners []SelectionListener
}

// NewStore returns an empty, unauthenticated store.
func NewStore() *Store {
	return &Store{}
}

// User returns the authenticated user.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// SetUser sets or clears (nil) the authenticated user. Clearing the user also
// resets the conversation and notification state.
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	if user == nil {
		s.user = nil
		s.conversations = nil
		s.notifications = nil
		s.mu.Unlock()
		return
	}
	u := *user
	s.user = &u
	s.mu.Unlock()
}

// Conversations returns a copy of the known conversations in display order.
func (s *Store) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Conversation looks up a known conversation by id.
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// SetConversations replaces the known set, keeping the first entry per id.
func (s *Store) SetConversations(list []models.Conversation) {
	seen := make(map[string]bool, len(list))
	out := make([]models.Conversation, 0, len(list))
	for _, c := range list {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}

	s.mu.Lock()
	s.conversations = out
	s.mu.Unlock()
}

// Selected returns the open conversation.
func (s *Store) Selected() (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return models.Conversation{}, false
	}
	return *s.selected, true
}

// SelectedID returns the open conversation id, or "".
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return ""
	}
	return s.selected.ID
}

// OnSelect registers a selection listener.
func (s *Store) OnSelect(l SelectionListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// SetSelected changes the open conversation and notifies listeners.
func (s *Store) SetSelected(next *models.Conversation) {
	s.mu.Lock()
	prev := s.selected
	if next != nil {
		c := *next
		s.selected = &c
	} else {
		s.selected = nil
	}
	listeners := append([]SelectionListener(nil), s.listeners...)
	cur := s.selected
	s.mu.Unlock()

	for _, l := range listeners {
		l(copyConv(prev), copyConv(cur))
	}
}

// ReplaceSelected swaps the open conversation's data (after a rename or a
// membership change) without firing selection listeners. It is a no-op when
// a different conversation is open.
func (s *Store) ReplaceSelected(conv models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && s.selected.ID == conv.ID {
		c := conv
		s.selected = &c
	}
}

// Notifications returns the pending notifications, most recent first.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// SetNotifications replaces the pending notifications.
func (s *Store) SetNotifications(list []models.Notification) {
	s.mu.Lock()
	s.notifications = list
	s.mu.Unlock()
}

// Badge is the number of pending notifications.
func (s *Store) Badge() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}

func copyConv(c *models.Conversation) *models.Conversation {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
