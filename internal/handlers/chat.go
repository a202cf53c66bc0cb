package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatHandler manages the conversation list and selection.
type ChatHandler struct {
	session Session
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(session Session) *ChatHandler {
	return &ChatHandler{session: session}
}

// ListChats returns the known conversations in display order.
func (h *ChatHandler) ListChats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"chats": h.session.Chats()})
}

// AccessChat opens the direct chat with a user, creating it if needed.
func (h *ChatHandler) AccessChat(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.AccessChat(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// OpenChat makes a known conversation the open one.
func (h *ChatHandler) OpenChat(c *gin.Context) {
	if err := h.session.Open(c.Request.Context(), c.Param("chat_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseChat clears the selection.
func (h *ChatHandler) CloseChat(c *gin.Context) {
	if err := h.session.CloseConversation(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchUsers finds users by name or email.
func (h *ChatHandler) SearchUsers(c *gin.Context) {
	users, err := h.session.SearchUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
