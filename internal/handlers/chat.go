package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cash-request-service/internal/middleware"
	"cash-request-service/internal/models"
)

// ChatService is the conversation service as used by the HTTP layer.
type ChatService interface {
	SendMessage(ctx context.Context, conversationID, senderID, text string, isSystem bool) (models.Message, error)
	ListMessages(ctx context.Context, conversationID, userID string) ([]models.Message, error)
	InitiateCall(ctx context.Context, conversationID, callerID string) (models.CallSession, error)
	AcceptCall(ctx context.Context, conversationID, userID string) (models.CallSession, error)
	EndCall(ctx context.Context, conversationID, userID string) error
	CallStatus(ctx context.Context, conversationID, userID string) (models.CallSession, error)
}

// ChatHandler manages conversation message endpoints.
type ChatHandler struct {
	svc ChatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Register mounts the routes on an authenticated group.
func (h *ChatHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/:chat_id/messages", h.GetMessages)
	rg.POST("/:chat_id/messages", h.PostMessage)
}

// GetMessages returns the chat history for a participant.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	msgs, err := h.svc.ListMessages(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and relays it to the other participant.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var body struct {
		Text            string `json:"text" binding:"required"`
		IsSystemMessage bool   `json:"isSystemMessage"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c), body.Text, body.IsSystemMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
