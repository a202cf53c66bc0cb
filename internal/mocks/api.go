package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
)

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) SetToken(token string) {
	m.Called(token)
}

func (m *ChatAPIMock) Login(ctx context.Context, email, password string) (models.User, error) {
	args := m.Called(ctx, email, password)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *ChatAPIMock) Register(ctx context.Context, name, email, password, photo string) (models.User, error) {
	args := m.Called(ctx, name, email, password, photo)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *ChatAPIMock) ListChats(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	args := m.Called(ctx, userID)
	return conversation(args), args.Error(1)
}

func (m *ChatAPIMock) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, name, userIDs)
	return conversation(args), args.Error(1)
}

func (m *ChatAPIMock) RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, name)
	return conversation(args), args.Error(1)
}

func (m *ChatAPIMock) AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, userID)
	return conversation(args), args.Error(1)
}

func (m *ChatAPIMock) RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID, userID)
	return conversation(args), args.Error(1)
}

func (m *ChatAPIMock) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, chatID, content string) (models.Message, error) {
	args := m.Called(ctx, chatID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func conversation(args mock.Arguments) models.Conversation {
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv
}
