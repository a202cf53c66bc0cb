// Package chatlist keeps the known conversation set in sync with the server and
// owns the selection of the open conversation.
package chatlist

import (
	"context"
	"log"
	"strings"

	"chat-client/internal/apperr"
	"chat-client/internal/loop"
	"chat-client/internal/models"
	"chat-client/internal/notice"
	"chat-client/internal/session"
)

// API is the subset of the REST client the synchronizer uses.
type API interface {
	ListChats(ctx context.Context) ([]models.Conversation, error)
	AccessChat(ctx context.Context, userID string) (models.Conversation, error)
	CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error)
	RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error)
	AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error)
	RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// RoomLeaver leaves an event channel room.
type RoomLeaver interface {
	LeaveRoom(conversationID string) error
}

// Synchronizer is the single writer of the store's conversations and
// selection. Methods taking a context block on the network and must be called
// off the loop; the others run on the loop.
type Synchronizer struct {
	loop    *loop.Loop
	store   *session.Store
	api     API
	rooms   RoomLeaver
	notices *notice.Board

	// loop-owned
	generation uint64
	reload     func()
	left       map[string]bool
}

// New creates a synchronizer.
func New(l *loop.Loop, store *session.Store, api API, rooms RoomLeaver, notices *notice.Board) *Synchronizer {
	return &Synchronizer{loop: l, store: store, api: api, rooms: rooms, notices: notices, left: map[string]bool{}}
}

// SetReloader registers the history reload run after a membership change of
// the open conversation.
func (s *Synchronizer) SetReloader(fn func()) {
	s.reload = fn
}

// Refresh fetches the conversation list and replaces the known set. The
// result is dropped if a later refetch or a Reset happened meanwhile.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	var gen uint64
	if err := s.loop.Do(ctx, func() {
		s.generation++
		gen = s.generation
	}); err != nil {
		return err
	}

	chats, err := s.api.ListChats(ctx)
	if err != nil {
		s.notices.Push(notice.Error("Error occurred", "Failed to load chats", notice.PositionTopRight))
		return err
	}
	return s.loop.Do(ctx, func() {
		if gen != s.generation {
			log.Printf("discarding superseded chat list: generation=%d current=%d", gen, s.generation)
			return
		}
		s.apply(chats)
	})
}

// Reset invalidates every fetch in flight. It runs on the loop when the
// session ends.
func (s *Synchronizer) Reset() {
	s.generation++
	s.left = map[string]bool{}
}

// Left reports whether the local user removed themselves from the
// conversation and it has not reappeared in the list since.
func (s *Synchronizer) Left(conversationID string) bool {
	return s.left[conversationID]
}

// Invalidate is the coarse refetch signal. The list is fetched in the
// background; only the result of the latest signal is applied.
func (s *Synchronizer) Invalidate() {
	s.generation++
	gen := s.generation
	loop.Await(s.loop, s.api.ListChats, func(chats []models.Conversation, err error) {
		if gen != s.generation {
			return
		}
		if err != nil {
			log.Printf("chat list refetch failed: %v", err)
			s.notices.Push(notice.Error("Error occurred", "Failed to load chats", notice.PositionTopRight))
			return
		}
		s.apply(chats)
	})
}

// Generation counts refetch signals, refreshes and resets.
func (s *Synchronizer) Generation() uint64 {
	return s.generation
}

func (s *Synchronizer) apply(chats []models.Conversation) {
	for _, c := range chats {
		delete(s.left, c.ID)
	}
	s.store.SetConversations(chats)
	if selected := s.store.SelectedID(); selected != "" {
		if fresh, ok := s.store.Conversation(selected); ok {
			s.store.ReplaceSelected(fresh)
		}
	}
}

// OnSelect opens conv, or closes the open conversation when conv is nil. The
// room of a previously open, different conversation is left first.
func (s *Synchronizer) OnSelect(conv *models.Conversation) {
	if prev := s.store.SelectedID(); prev != "" && (conv == nil || conv.ID != prev) {
		if err := s.rooms.LeaveRoom(prev); err != nil {
			log.Printf("leave room failed: chat_id=%s err=%v", prev, err)
		}
	}
	s.store.SetSelected(conv)
}

// Select opens the known conversation with the given id.
func (s *Synchronizer) Select(conversationID string) bool {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return false
	}
	s.OnSelect(&conv)
	return true
}

// UpsertFromCreation adds a newly created or accessed conversation to the
// front of the list if absent, then opens it.
func (s *Synchronizer) UpsertFromCreation(conv models.Conversation) {
	if _, ok := s.store.Conversation(conv.ID); !ok {
		list := append([]models.Conversation{conv}, s.store.Conversations()...)
		s.store.SetConversations(list)
	}
	s.OnSelect(&conv)
}

// Touch applies msg as the latest message of its conversation and moves the
// conversation to the front ahead of the next refetch.
func (s *Synchronizer) Touch(msg models.Message) {
	id := msg.ConversationID()
	current := s.store.Conversations()
	for i, c := range current {
		if c.ID != id {
			continue
		}
		latest := msg
		latest.Chat = &models.Conversation{ID: id}
		c.LatestMessage = &latest

		list := make([]models.Conversation, 0, len(current))
		list = append(list, c)
		list = append(list, current[:i]...)
		list = append(list, current[i+1:]...)
		s.store.SetConversations(list)
		return
	}
}

// SearchUsers looks up users to start a chat with or add to a group.
func (s *Synchronizer) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users, err := s.api.SearchUsers(ctx, query)
	if err != nil {
		s.notices.Push(notice.Error("Error occurred", "Failed to load the search results", notice.PositionTopRight))
		return nil, err
	}
	return users, nil
}

// AccessChat opens the direct chat with userID, creating it on the server if
// needed.
func (s *Synchronizer) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	conv, err := s.api.AccessChat(ctx, userID)
	if err != nil {
		s.notices.Push(notice.Error("Error fetching chat", apperr.Message(err), notice.PositionTopRight))
		return models.Conversation{}, err
	}
	if err := s.loop.Do(ctx, func() { s.UpsertFromCreation(conv) }); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// CreateGroup creates a group chat with the given members and opens it.
func (s *Synchronizer) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	const op = "create group"
	name = strings.TrimSpace(name)
	if name == "" || len(userIDs) == 0 {
		s.notices.Push(notice.Warning("Please fill all the fields", notice.PositionTop))
		return models.Conversation{}, apperr.Validation(op, "group name and members are required")
	}
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			s.notices.Push(notice.Warning("User already selected", notice.PositionTop))
			return models.Conversation{}, apperr.Validation(op, "user already selected")
		}
		seen[id] = true
	}

	conv, err := s.api.CreateGroup(ctx, name, userIDs)
	if err != nil {
		s.notices.Push(notice.Error("Failed To Create Group Chat", apperr.Message(err), notice.PositionTopRight))
		return models.Conversation{}, err
	}
	if err := s.loop.Do(ctx, func() { s.UpsertFromCreation(conv) }); err != nil {
		return models.Conversation{}, err
	}
	s.notices.Push(notice.Success("New Group Chat Created", notice.PositionTopRight))
	return conv, nil
}

// RenameGroup renames a group chat. An empty name is ignored.
func (s *Synchronizer) RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		conv, _ := s.store.Conversation(chatID)
		return conv, nil
	}

	conv, err := s.api.RenameGroup(ctx, chatID, name)
	if err != nil {
		s.notices.Push(notice.Error("Error occurred", "Failed to update group name", notice.PositionTopRight))
		return models.Conversation{}, err
	}
	if err := s.loop.Do(ctx, func() {
		s.replace(conv)
		s.Invalidate()
	}); err != nil {
		return models.Conversation{}, err
	}
	s.notices.Push(notice.Success("Group Name Updated", notice.PositionTopRight))
	return conv, nil
}

// AddToGroup adds user to a group chat. Adding an existing member is rejected
// without a request.
func (s *Synchronizer) AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	if known, ok := s.store.Conversation(chatID); ok && known.HasMember(userID) {
		s.notices.Push(notice.Error("User already exists", "", notice.PositionTopRight))
		return models.Conversation{}, apperr.Validation("add to group", "user already exists")
	}

	conv, err := s.api.AddToGroup(ctx, chatID, userID)
	if err != nil {
		s.notices.Push(notice.Error("Error occurred", apperr.Message(err), notice.PositionTopRight))
		return models.Conversation{}, err
	}
	if err := s.loop.Do(ctx, func() {
		s.replace(conv)
		s.Invalidate()
	}); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// RemoveFromGroup removes userID from a group chat. Removing the local user
// closes the conversation.
func (s *Synchronizer) RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	conv, err := s.api.RemoveFromGroup(ctx, chatID, userID)
	if err != nil {
		s.notices.Push(notice.Error("Error occurred", apperr.Message(err), notice.PositionTopRight))
		return models.Conversation{}, err
	}

	me, _ := s.store.User()
	if err := s.loop.Do(ctx, func() {
		open := s.store.SelectedID() == chatID
		if userID == me.ID {
			if open {
				s.OnSelect(nil)
			}
			s.left[chatID] = true
		} else {
			s.replace(conv)
			if open && s.reload != nil {
				s.reload()
			}
		}
		s.Invalidate()
	}); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// replace swaps a known conversation's data in place, including the open one.
func (s *Synchronizer) replace(conv models.Conversation) {
	list := s.store.Conversations()
	for i := range list {
		if list[i].ID == conv.ID {
			list[i] = conv
		}
	}
	s.store.SetConversations(list)
	s.store.ReplaceSelected(conv)
}
