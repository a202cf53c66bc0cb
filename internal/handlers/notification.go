package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes unread notifications and notices.
type NotificationHandler struct {
	session Session
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(session Session) *NotificationHandler {
	return &NotificationHandler{session: session}
}

// ListNotifications returns pending notifications with the badge count.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	list := h.session.Notifications()
	c.JSON(http.StatusOK, gin.H{"badge": len(list), "notifications": list})
}

// OpenNotification opens the conversation a notification points to.
func (h *NotificationHandler) OpenNotification(c *gin.Context) {
	if err := h.session.OpenNotification(c.Request.Context(), c.Param("message_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DismissNotification drops a notification.
func (h *NotificationHandler) DismissNotification(c *gin.Context) {
	if err := h.session.DismissNotification(c.Request.Context(), c.Param("message_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ListNotices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notices": h.session.Notices()})
}

func (h *NotificationHandler) DismissNotice(c *gin.Context) {
	if !h.session.DismissNotice(c.Param("notice_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
