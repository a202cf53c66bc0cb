package mocks

import (
	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
)

// ChannelMock stands in for the websocket event channel. Connected defaults to
// the value of IsConnected when no expectation is set for it.
type ChannelMock struct {
	mock.Mock
	IsConnected bool
}

func (m *ChannelMock) Connected() bool {
	return m.IsConnected
}

func (m *ChannelMock) JoinRoom(conversationID string) error {
	args := m.Called(conversationID)
	return args.Error(0)
}

func (m *ChannelMock) LeaveRoom(conversationID string) error {
	args := m.Called(conversationID)
	return args.Error(0)
}

func (m *ChannelMock) EmitTyping(conversationID string, isTyping bool) error {
	args := m.Called(conversationID, isTyping)
	return args.Error(0)
}

func (m *ChannelMock) EmitMessage(msg models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
