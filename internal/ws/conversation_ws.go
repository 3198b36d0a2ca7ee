package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cash-request-service/internal/middleware"
)

// ParticipantChecker reports conversation membership.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationWebSocketHandler handles conversation websocket connections.
type ConversationWebSocketHandler struct {
	hub          *Hub
	participants ParticipantChecker
	validator    middleware.TokenValidator
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, participants ParticipantChecker, validator middleware.TokenValidator) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, participants: participants, validator: validator}
}

// Handle upgrades the connection and registers the client.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID := c.Param("chat_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID, ok := authenticate(c, h.validator)
	if !ok {
		return
	}

	member, err := h.participants.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	serve(c, h.hub, ConversationRoom(conversationID), userID)
}
