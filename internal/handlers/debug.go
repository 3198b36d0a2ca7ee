package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cash-request-service/internal/middleware"
)

const debugEventType = "debug.ping"

// LifecycleEmitter publishes request lifecycle events.
type LifecycleEmitter interface {
	Emit(ctx context.Context, eventType, requestID, actorID string, payload map[string]any)
}

// Sweeper expires stale copies for one user.
type Sweeper interface {
	Sweep(ctx context.Context, userID string) error
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter LifecycleEmitter, sweeper Sweeper, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/lifecycle-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lifecycle emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), debugEventType, uuid.NewString(), c.GetHeader("X-User-ID"), map[string]any{
			"httpRequestId": httpRequestID(c),
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/debug/sweep/:user_id", func(c *gin.Context) {
		if sweeper == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweeper not configured"})
			return
		}
		if err := sweeper.Sweep(c.Request.Context(), c.Param("user_id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "swept"})
	})
}

func httpRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
