package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuditTester emits a test audit event.
type AuditTester interface {
	EmitAuditTest(ctx context.Context, requestID string)
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, tester AuditTester, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if tester == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		requestID := requestIDFromContext(c)
		tester.EmitAuditTest(c.Request.Context(), requestID)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
	})
}
