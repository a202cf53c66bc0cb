package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/app"
	"chat-client/internal/messages"
	"chat-client/internal/models"
	"chat-client/internal/notice"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) User() (models.User, bool) {
	args := m.Called()
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Bool(1)
}

func (m *SessionMock) Login(ctx context.Context, email, password string) (models.User, error) {
	args := m.Called(ctx, email, password)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *SessionMock) Register(ctx context.Context, reg app.Registration) (models.User, error) {
	args := m.Called(ctx, reg)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *SessionMock) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *SessionMock) Chats() []app.ChatEntry {
	args := m.Called()
	var list []app.ChatEntry
	if val := args.Get(0); val != nil {
		list = val.([]app.ChatEntry)
	}
	return list
}

func (m *SessionMock) Open(ctx context.Context, conversationID string) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *SessionMock) CloseConversation(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *SessionMock) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *SessionMock) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	args := m.Called(ctx, userID)
	return conversationArg(args), args.Error(1)
}

func (m *SessionMock) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, name, userIDs)
	return conversationArg(args), args.Error(1)
}

func (m *SessionMock) RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, name)
	return conversationArg(args), args.Error(1)
}

func (m *SessionMock) AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, userID)
	return conversationArg(args), args.Error(1)
}

func (m *SessionMock) RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, userID)
	return conversationArg(args), args.Error(1)
}

func (m *SessionMock) Messages(ctx context.Context) (messages.View, error) {
	args := m.Called(ctx)
	var view messages.View
	if val := args.Get(0); val != nil {
		view = val.(messages.View)
	}
	return view, args.Error(1)
}

func (m *SessionMock) Keystroke(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *SessionMock) Send(ctx context.Context) (models.Message, error) {
	args := m.Called(ctx)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *SessionMock) Notifications() []app.NotificationEntry {
	args := m.Called()
	var list []app.NotificationEntry
	if val := args.Get(0); val != nil {
		list = val.([]app.NotificationEntry)
	}
	return list
}

func (m *SessionMock) OpenNotification(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

func (m *SessionMock) DismissNotification(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

func (m *SessionMock) Notices() []notice.Notice {
	args := m.Called()
	var list []notice.Notice
	if val := args.Get(0); val != nil {
		list = val.([]notice.Notice)
	}
	return list
}

func (m *SessionMock) DismissNotice(id string) bool {
	return m.Called(id).Bool(0)
}

func (m *SessionMock) EmitAuditTest(ctx context.Context, requestID string) {
	m.Called(ctx, requestID)
}

func conversationArg(args mock.Arguments) models.Conversation {
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv
}
