package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cash-request-service/internal/middleware"
)

// CallHandler serves call signaling for a chat.
type CallHandler struct {
	svc ChatService
}

// NewCallHandler builds a CallHandler.
func NewCallHandler(svc ChatService) *CallHandler {
	return &CallHandler{svc: svc}
}

// Register mounts the routes on an authenticated group.
func (h *CallHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/:chat_id/initiate", h.Initiate)
	rg.POST("/:chat_id/accept", h.Accept)
	rg.POST("/:chat_id/end", h.End)
	rg.GET("/:chat_id/status", h.Status)
}

func (h *CallHandler) Initiate(c *gin.Context) {
	session, err := h.svc.InitiateCall(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CallHandler) Accept(c *gin.Context) {
	session, err := h.svc.AcceptCall(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CallHandler) End(c *gin.Context) {
	if err := h.svc.EndCall(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"callStatus": "idle"})
}

func (h *CallHandler) Status(c *gin.Context) {
	session, err := h.svc.CallStatus(c.Request.Context(), c.Param("chat_id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
