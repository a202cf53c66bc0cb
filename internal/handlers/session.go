package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/app"
	"chat-client/internal/apperr"
	"chat-client/internal/messages"
	"chat-client/internal/models"
	"chat-client/internal/notice"
)

// Session is the client façade the control API drives.
type Session interface {
	User() (models.User, bool)
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, reg app.Registration) (models.User, error)
	Logout(ctx context.Context) error

	Chats() []app.ChatEntry
	Open(ctx context.Context, conversationID string) error
	CloseConversation(ctx context.Context) error
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	AccessChat(ctx context.Context, userID string) (models.Conversation, error)

	CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error)
	RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error)
	AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error)
	RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error)

	Messages(ctx context.Context) (messages.View, error)
	Keystroke(ctx context.Context, text string) error
	Send(ctx context.Context) (models.Message, error)

	Notifications() []app.NotificationEntry
	OpenNotification(ctx context.Context, messageID string) error
	DismissNotification(ctx context.Context, messageID string) error
	Notices() []notice.Notice
	DismissNotice(id string) bool
}

// SessionHandler manages login state.
type SessionHandler struct {
	session Session
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

// Login authenticates against the chat server.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Register signs up a new account and logs it in.
func (h *SessionHandler) Register(c *gin.Context) {
	var req app.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.session.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Logout ends the session.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get reports the authenticated user, if any.
func (h *SessionHandler) Get(c *gin.Context) {
	user, ok := h.session.User()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// writeError maps client failures to status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrConversationNotFound), errors.Is(err, app.ErrNotificationNotFound):
		status = http.StatusNotFound
	case apperr.IsKind(err, apperr.KindValidation):
		status = http.StatusBadRequest
	case apperr.IsKind(err, apperr.KindNetwork):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}
