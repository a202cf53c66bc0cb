package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-client/internal/middleware"
)

// RegisterRoutes wires the control API onto router.
func RegisterRoutes(router *gin.Engine, session Session) {
	sessionHandler := NewSessionHandler(session)
	chatHandler := NewChatHandler(session)
	groupHandler := NewGroupHandler(session)
	messageHandler := NewMessageHandler(session)
	notificationHandler := NewNotificationHandler(session)

	router.POST("/session", sessionHandler.Login)
	router.DELETE("/session", sessionHandler.Logout)
	router.GET("/session", sessionHandler.Get)
	router.POST("/users", sessionHandler.Register)

	authed := router.Group("/", middleware.RequireSession(session))

	authed.GET("/chats", chatHandler.ListChats)
	authed.POST("/chats/access", chatHandler.AccessChat)
	authed.POST("/chats/:chat_id/open", chatHandler.OpenChat)
	authed.DELETE("/chats/selection", chatHandler.CloseChat)
	authed.GET("/users", chatHandler.SearchUsers)

	authed.POST("/groups", groupHandler.CreateGroup)
	authed.PUT("/groups/:chat_id/name", groupHandler.RenameGroup)
	authed.POST("/groups/:chat_id/members", groupHandler.AddMember)
	authed.DELETE("/groups/:chat_id/members/:user_id", groupHandler.RemoveMember)

	authed.GET("/messages", messageHandler.GetMessages)
	authed.PUT("/messages/draft", messageHandler.UpdateDraft)
	authed.POST("/messages", messageHandler.Send)

	authed.GET("/notifications", notificationHandler.ListNotifications)
	authed.POST("/notifications/:message_id/open", notificationHandler.OpenNotification)
	authed.DELETE("/notifications/:message_id", notificationHandler.DismissNotification)

	authed.GET("/notices", notificationHandler.ListNotices)
	authed.DELETE("/notices/:notice_id", notificationHandler.DismissNotice)
}
