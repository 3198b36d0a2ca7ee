package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/models"
)

// CopyKey addresses one stored copy of a request.
type CopyKey struct {
	RequestID string
	UserID    string
	Role      models.Role
}

// RequestRepository persists canonical requests and their per-user copies.
//
// TransitionCopy is the only status write and must be atomic: the status
// predicate is evaluated in the same statement that applies the new status.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req models.Request) error
	CreateIncomingCopies(ctx context.Context, req models.Request, recipientIDs []string) (int, error)
	GetCopy(ctx context.Context, key CopyKey) (models.RequestCopy, error)
	TransitionCopy(ctx context.Context, key CopyKey, from []models.Status, to models.Status) (bool, error)
	SetCopyConversation(ctx context.Context, key CopyKey, conversationID string) error
	AppendAcceptor(ctx context.Context, requestID string, acceptor models.Acceptor) error
	DeleteIncomingCopies(ctx context.Context, requestID string) (int64, error)
	ExpireCopies(ctx context.Context, userID string, role models.Role, from []models.Status, createdBefore time.Time) (int64, error)
	ListCopies(ctx context.Context, userID string, role models.Role) ([]models.RequestCopy, error)
	CountCopies(ctx context.Context, userID string, role models.Role, status models.Status) (int, error)
}

// RequestRepo is a sqlx implementation of RequestRepository.
type RequestRepo struct {
	db *sqlx.DB
}

// NewRequestRepo constructs a RequestRepo.
func NewRequestRepo(db *sqlx.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// CreateRequest stores the canonical record together with the requester's sent copy.
func (r *RequestRepo) CreateRequest(ctx context.Context, req models.Request) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO requests (id, requester_id, requester_name, amount, tip, instructions, kind, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.RequesterID, req.RequesterName, req.Amount, req.Tip, req.Instructions, req.Kind, req.CreatedAt); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO request_copies (request_id, user_id, role, status)
        VALUES ($1, $2, $3, $4)`, req.ID, req.RequesterID, models.RoleSent, models.StatusPending); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// CreateIncomingCopies fans the request out to the recipients in one bulk insert.
func (r *RequestRepo) CreateIncomingCopies(ctx context.Context, req models.Request, recipientIDs []string) (int, error) {
	if len(recipientIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO request_copies (request_id, user_id, role, status)
        SELECT $1, unnest($2::uuid[]), $3, $4
        ON CONFLICT DO NOTHING`, req.ID, pq.Array(recipientIDs), models.RoleIncoming, models.StatusPending)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

const copySelect = `SELECT r.id, r.requester_id, r.requester_name, r.amount, r.tip, r.instructions, r.kind, r.created_at,
        c.user_id, c.role, c.status, c.conversation_id
        FROM request_copies c
        INNER JOIN requests r ON r.id = c.request_id`

// GetCopy fetches a single copy; sent copies carry their acceptors.
func (r *RequestRepo) GetCopy(ctx context.Context, key CopyKey) (models.RequestCopy, error) {
	var cp models.RequestCopy
	err := r.db.GetContext(ctx, &cp, copySelect+` WHERE c.request_id=$1 AND c.user_id=$2 AND c.role=$3`, key.RequestID, key.UserID, key.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RequestCopy{}, ErrCopyNotFound
	}
	if err != nil {
		return models.RequestCopy{}, err
	}

	if key.Role == models.RoleSent {
		acceptors, err := r.acceptors(ctx, []string{key.RequestID})
		if err != nil {
			return models.RequestCopy{}, err
		}
		cp.Acceptors = acceptors[key.RequestID]
	}
	return cp, nil
}

// TransitionCopy sets status to `to` only when the current status is in from.
func (r *RequestRepo) TransitionCopy(ctx context.Context, key CopyKey, from []models.Status, to models.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE request_copies SET status=$4, updated_at=NOW()
        WHERE request_id=$1 AND user_id=$2 AND role=$3 AND status = ANY($5)`,
		key.RequestID, key.UserID, key.Role, to, pq.Array(statusStrings(from)))
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// SetCopyConversation records the conversation opened on a copy.
func (r *RequestRepo) SetCopyConversation(ctx context.Context, key CopyKey, conversationID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE request_copies SET conversation_id=$4, updated_at=NOW()
        WHERE request_id=$1 AND user_id=$2 AND role=$3`, key.RequestID, key.UserID, key.Role, conversationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCopyNotFound
	}
	return nil
}

// AppendAcceptor adds an acceptor to the request's sent copy. Nothing is written
// once the sent copy has left pending or active.
func (r *RequestRepo) AppendAcceptor(ctx context.Context, requestID string, a models.Acceptor) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO request_acceptors (request_id, acceptor_id, acceptor_name, conversation_id, accepted_at)
        SELECT $1::uuid, $2::uuid, $3::text, $4::uuid, $5::timestamptz
        WHERE EXISTS (SELECT 1 FROM request_copies WHERE request_id=$1::uuid AND role=$6 AND status = ANY($7))`,
		requestID, a.AcceptorID, a.AcceptorName, a.ConversationID, a.AcceptedAt,
		models.RoleSent, pq.Array(statusStrings(lifecycle.AcceptingStatuses())))
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestClosed
	}
	return nil
}

// DeleteIncomingCopies withdraws the request from every recipient that has not completed it.
func (r *RequestRepo) DeleteIncomingCopies(ctx context.Context, requestID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM request_copies WHERE request_id=$1 AND role=$2 AND status <> $3`,
		requestID, models.RoleIncoming, models.StatusCompleted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireCopies flips the user's stale copies whose status is in from to expired.
func (r *RequestRepo) ExpireCopies(ctx context.Context, userID string, role models.Role, from []models.Status, createdBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE request_copies c SET status=$4, updated_at=NOW()
        FROM requests r
        WHERE r.id = c.request_id AND c.user_id=$1 AND c.role=$2 AND c.status = ANY($3) AND r.created_at < $5`,
		userID, role, pq.Array(statusStrings(from)), models.StatusExpired, createdBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListCopies returns the user's copies for a role, newest first.
func (r *RequestRepo) ListCopies(ctx context.Context, userID string, role models.Role) ([]models.RequestCopy, error) {
	var copies []models.RequestCopy
	if err := r.db.SelectContext(ctx, &copies, copySelect+` WHERE c.user_id=$1 AND c.role=$2 ORDER BY r.created_at DESC`, userID, role); err != nil {
		return nil, err
	}
	if role != models.RoleSent || len(copies) == 0 {
		return copies, nil
	}

	ids := make([]string, 0, len(copies))
	for _, cp := range copies {
		ids = append(ids, cp.ID)
	}
	acceptors, err := r.acceptors(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range copies {
		copies[i].Acceptors = acceptors[copies[i].ID]
	}
	return copies, nil
}

// CountCopies counts the user's copies in a status.
func (r *RequestRepo) CountCopies(ctx context.Context, userID string, role models.Role, status models.Status) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM request_copies WHERE user_id=$1 AND role=$2 AND status=$3`, userID, role, status)
	return count, err
}

func (r *RequestRepo) acceptors(ctx context.Context, requestIDs []string) (map[string][]models.Acceptor, error) {
	type acceptorRow struct {
		RequestID string `db:"request_id"`
		models.Acceptor
	}
	var rows []acceptorRow
	err := r.db.SelectContext(ctx, &rows, `SELECT request_id, acceptor_id, acceptor_name, conversation_id, accepted_at
        FROM request_acceptors WHERE request_id = ANY($1::uuid[]) ORDER BY accepted_at ASC`, pq.Array(requestIDs))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]models.Acceptor, len(requestIDs))
	for _, row := range rows {
		out[row.RequestID] = append(out[row.RequestID], row.Acceptor)
	}
	return out, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
