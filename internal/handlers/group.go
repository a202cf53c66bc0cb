package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GroupHandler manages group chats.
type GroupHandler struct {
	session Session
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(session Session) *GroupHandler {
	return &GroupHandler{session: session}
}

// CreateGroup creates a group chat and opens it.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name"`
		UserIDs []string `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.CreateGroup(c.Request.Context(), req.Name, req.UserIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat": chat})
}

// RenameGroup renames a group chat.
func (h *GroupHandler) RenameGroup(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.RenameGroup(c.Request.Context(), c.Param("chat_id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// AddMember adds a user to a group chat.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.AddToGroup(c.Request.Context(), c.Param("chat_id"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// RemoveMember removes a user from a group chat.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	chat, err := h.session.RemoveFromGroup(c.Request.Context(), c.Param("chat_id"), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}
