package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cash-request-service/internal/models"
)

// ConversationRepository stores the private chats opened by accepting a request.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, requestID, requesterID, recipientID string) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationRepo is a sqlx-backed implementation.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateConversation opens the conversation for a (request, recipient) pair, returning
// the existing one when it was already opened.
func (r *ConversationRepo) CreateConversation(ctx context.Context, requestID, requesterID, recipientID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (id, request_id, requester_id, recipient_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (request_id, recipient_id) DO UPDATE SET request_id = EXCLUDED.request_id
        RETURNING id, request_id, requester_id, recipient_id, created_at`,
		uuid.NewString(), requestID, requesterID, recipientID)
	return conv, err
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, request_id, requester_id, recipient_id, created_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether a user belongs to a conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (requester_id=$2 OR recipient_id=$2))`, conversationID, userID)
	return exists, err
}
