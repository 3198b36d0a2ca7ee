package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"cash-request-service/internal/middleware"
	"cash-request-service/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// tokenFromRequest reads the bearer token from the header or the token query param.
func tokenFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		return middleware.BearerToken(header)
	}
	token := c.Query("token")
	return token, token != ""
}

func authenticate(c *gin.Context, validator middleware.TokenValidator) (string, bool) {
	token, ok := tokenFromRequest(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return "", false
	}
	userID, err := validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

// serve upgrades the request, joins room and keeps reading until the peer goes away.
func serve(c *gin.Context, hub *Hub, room, userID string) {
	kind := roomKind(room)
	ctx, span := otel.Tracer("cash-request-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	hub.Add(room, conn, info)
	observability.IncWSActive(kind)
	publishWSEvent(ctx, kind, room, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			hub.Remove(room, conn)
			observability.DecWSActive(kind)
			publishWSEvent(context.Background(), kind, room, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(context.Background(), kind, room, "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}
