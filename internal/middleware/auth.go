package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/models"
)

// UserSource reports the authenticated user of the local session.
type UserSource interface {
	User() (models.User, bool)
}

// RequireSession rejects requests while no user is logged in.
func RequireSession(sessions UserSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := sessions.User()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
