package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"cash-request-service/internal/ledger"
	"cash-request-service/internal/middleware"
	"cash-request-service/internal/models"
)

// RequestService is the request ledger as used by the HTTP layer.
type RequestService interface {
	Create(ctx context.Context, in ledger.CreateInput) (ledger.CreateResult, error)
	Accept(ctx context.Context, recipientID, requestID string) (ledger.AcceptResult, error)
	Complete(ctx context.Context, requesterID, requestID, acceptorID string) (models.RequestCopy, error)
	ListIncoming(ctx context.Context, userID string) ([]models.RequestCopy, error)
	ListSent(ctx context.Context, userID string) ([]models.RequestCopy, error)
	CountPending(ctx context.Context, userID string) (int, error)
	GetAcceptors(ctx context.Context, requesterID, requestID string) (ledger.AcceptorsView, error)
}

// RequestHandler serves the cash request endpoints.
type RequestHandler struct {
	svc RequestService
}

// NewRequestHandler builds a RequestHandler.
func NewRequestHandler(svc RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Register mounts the routes on an authenticated group.
func (h *RequestHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.CreateRequest)
	rg.GET("/incoming", h.ListIncoming)
	rg.GET("/sent", h.ListSent)
	rg.GET("/pending-count", h.PendingCount)
	rg.POST("/:request_id/accept", h.AcceptRequest)
	rg.POST("/:request_id/complete", h.CompleteRequest)
	rg.GET("/:request_id/acceptors", h.GetAcceptors)
}

// numberText accepts a JSON number or string and keeps its text, so money
// values are parsed and validated in one place.
type numberText string

func (n *numberText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numberText(num.String())
	return nil
}

type createRequestBody struct {
	Amount       numberText         `json:"amount"`
	Tip          numberText         `json:"tip"`
	Instructions string             `json:"instructions"`
	RequestType  models.Kind        `json:"requestType"`
	RadiusKm     float64            `json:"radiusKm"`
	Location     *models.Coordinate `json:"location"`
}

// CreateRequest fans a new request out to nearby users.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Create(c.Request.Context(), ledger.CreateInput{
		RequesterID:  middleware.UserID(c),
		Amount:       string(body.Amount),
		Tip:          string(body.Tip),
		Instructions: body.Instructions,
		Kind:         body.RequestType,
		Origin:       body.Location,
		RadiusKm:     body.RadiusKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"request":    result.Request,
		"recipients": result.Recipients,
	})
}

// AcceptRequest accepts an incoming request and opens a chat with the requester.
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	result, err := h.svc.Accept(c.Request.Context(), middleware.UserID(c), c.Param("request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request": result.Request,
		"chatId":  result.Conversation.ID,
	})
}

// CompleteRequest closes a request with the chosen acceptor.
func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	var body struct {
		AcceptorID string `json:"acceptorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sent, err := h.svc.Complete(c.Request.Context(), middleware.UserID(c), c.Param("request_id"), body.AcceptorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": sent})
}

// ListIncoming returns requests addressed to the caller.
func (h *RequestHandler) ListIncoming(c *gin.Context) {
	copies, err := h.svc.ListIncoming(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": nonNil(copies)})
}

// ListSent returns requests the caller created.
func (h *RequestHandler) ListSent(c *gin.Context) {
	copies, err := h.svc.ListSent(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": nonNil(copies)})
}

// PendingCount returns how many incoming requests await an answer.
func (h *RequestHandler) PendingCount(c *gin.Context) {
	count, err := h.svc.CountPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetAcceptors lists who accepted one of the caller's requests.
func (h *RequestHandler) GetAcceptors(c *gin.Context) {
	view, err := h.svc.GetAcceptors(c.Request.Context(), middleware.UserID(c), c.Param("request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if view.Acceptors == nil {
		view.Acceptors = []models.Acceptor{}
	}
	c.JSON(http.StatusOK, view)
}

func nonNil(copies []models.RequestCopy) []models.RequestCopy {
	if copies == nil {
		return []models.RequestCopy{}
	}
	return copies
}
