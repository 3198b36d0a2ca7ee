package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"cash-request-service/internal/models"
)

// CallRepository keeps call signaling state with an explicit expiry so that
// abandoned sessions stop blocking new calls on their own.
type CallRepository interface {
	StartCall(ctx context.Context, session models.CallSession) error
	UpdateCallStatus(ctx context.Context, conversationID string, from, to models.CallStatus, expiresAt time.Time) (models.CallSession, error)
	GetCall(ctx context.Context, conversationID string, now time.Time) (models.CallSession, error)
	EndCall(ctx context.Context, conversationID string) error
}

// CallRepo is a sqlx-backed implementation.
type CallRepo struct {
	db *sqlx.DB
}

// NewCallRepo constructs a CallRepo.
func NewCallRepo(db *sqlx.DB) *CallRepo {
	return &CallRepo{db: db}
}

// StartCall creates a ringing session unless a live one already exists.
func (r *CallRepo) StartCall(ctx context.Context, s models.CallSession) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO call_sessions (conversation_id, caller_id, recipient_id, status, expires_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (conversation_id) DO UPDATE SET
            caller_id = EXCLUDED.caller_id,
            recipient_id = EXCLUDED.recipient_id,
            status = EXCLUDED.status,
            expires_at = EXCLUDED.expires_at,
            updated_at = NOW()
        WHERE call_sessions.expires_at <= NOW()`,
		s.ConversationID, s.CallerID, s.RecipientID, s.Status, s.ExpiresAt)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCallInProgress
	}
	return nil
}

// UpdateCallStatus moves a live session from one status to another.
func (r *CallRepo) UpdateCallStatus(ctx context.Context, conversationID string, from, to models.CallStatus, expiresAt time.Time) (models.CallSession, error) {
	var s models.CallSession
	err := r.db.GetContext(ctx, &s, `UPDATE call_sessions SET status=$3, expires_at=$4, updated_at=NOW()
        WHERE conversation_id=$1 AND status=$2 AND expires_at > NOW()
        RETURNING conversation_id, caller_id, recipient_id, status, expires_at, updated_at`,
		conversationID, from, to, expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CallSession{}, ErrCallNotFound
	}
	return s, err
}

// GetCall returns the live session for a conversation.
func (r *CallRepo) GetCall(ctx context.Context, conversationID string, now time.Time) (models.CallSession, error) {
	var s models.CallSession
	err := r.db.GetContext(ctx, &s, `SELECT conversation_id, caller_id, recipient_id, status, expires_at, updated_at
        FROM call_sessions WHERE conversation_id=$1 AND expires_at > $2`, conversationID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CallSession{}, ErrCallNotFound
	}
	return s, err
}

// EndCall removes the session.
func (r *CallRepo) EndCall(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM call_sessions WHERE conversation_id=$1`, conversationID)
	return err
}
