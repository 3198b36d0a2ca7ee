package ws

import (
	"github.com/gin-gonic/gin"

	"cash-request-service/internal/middleware"
)

// UserWebSocketHandler joins a socket to its owner's user room, where request
// lifecycle events are delivered.
type UserWebSocketHandler struct {
	hub       *Hub
	validator middleware.TokenValidator
}

// NewUserWebSocketHandler constructs a UserWebSocketHandler.
func NewUserWebSocketHandler(hub *Hub, validator middleware.TokenValidator) *UserWebSocketHandler {
	return &UserWebSocketHandler{hub: hub, validator: validator}
}

// Handle upgrades the connection and registers the client.
func (h *UserWebSocketHandler) Handle(c *gin.Context) {
	userID, ok := authenticate(c, h.validator)
	if !ok {
		return
	}
	serve(c, h.hub, UserRoom(userID), userID)
}
