package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cash-request-service/internal/logger"
	"cash-request-service/internal/middleware"
	"cash-request-service/internal/models"
)

// UserStore is the part of the user registry exposed over HTTP.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.User, bool, error)
	RecordLocation(ctx context.Context, userID string, loc models.Location) error
	SetDeviceToken(ctx context.Context, userID string, token string) error
}

// TokenIssuer mints session tokens after sign-in.
type TokenIssuer interface {
	IssueToken(userID string, ttl time.Duration) (string, error)
}

const sessionTTL = 30 * 24 * time.Hour

// UserHandler serves sign-in and the caller's own profile.
type UserHandler struct {
	users  UserStore
	tokens TokenIssuer
	log    *logger.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users UserStore, tokens TokenIssuer, log *logger.Logger) *UserHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &UserHandler{users: users, tokens: tokens, log: log.Named("users")}
}

// RegisterPublic mounts the sign-in routes.
func (h *UserHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/profile", h.UpsertProfile)
}

// Register mounts the authenticated routes.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.PUT("/me/location", h.UpdateLocation)
	rg.PUT("/me/device-token", h.UpdateDeviceToken)
}

// UpsertProfile creates or updates a user from a sign-in payload and returns a session token.
func (h *UserHandler) UpsertProfile(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	profile, shape, err := decodeProfile(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, created, err := h.users.UpsertProfile(c.Request.Context(), profile)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.IssueToken(user.ID, sessionTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("profile upserted",
		zap.String("user_id", user.ID),
		zap.Stringer("shape", shape),
		zap.Bool("created", created),
	)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": user, "token": token, "created": created})
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateLocation records the caller's position.
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var body struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
		Accuracy  *float64 `json:"accuracy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := models.Location{Latitude: *body.Latitude, Longitude: *body.Longitude, Accuracy: body.Accuracy}
	if !loc.Coordinate().Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	if err := h.users.RecordLocation(c.Request.Context(), middleware.UserID(c), loc); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDeviceToken stores the caller's push token. An empty token clears it.
func (h *UserHandler) UpdateDeviceToken(c *gin.Context) {
	var body struct {
		DeviceToken string `json:"deviceToken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.SetDeviceToken(c.Request.Context(), middleware.UserID(c), body.DeviceToken); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
