package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageHandler exposes the open conversation.
type MessageHandler struct {
	session Session
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(session Session) *MessageHandler {
	return &MessageHandler{session: session}
}

// GetMessages returns the open conversation's state, history and typing flags.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	view, err := h.session.Messages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateDraft records a keystroke.
func (h *MessageHandler) UpdateDraft(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.Keystroke(c.Request.Context(), req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Send sends the draft.
func (h *MessageHandler) Send(c *gin.Context) {
	msg, err := h.session.Send(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
