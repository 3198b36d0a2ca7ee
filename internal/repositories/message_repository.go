package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"cash-request-service/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists a message and returns it with id and timestamp filled in.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, text, is_system) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		msg.ConversationID, msg.SenderID, msg.Text, msg.IsSystem).
		Scan(&msg.ID, &msg.CreatedAt)
	return msg, err
}

// ListMessages returns messages ordered by creation.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender_id, text, is_system, created_at FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	return msgs, err
}
