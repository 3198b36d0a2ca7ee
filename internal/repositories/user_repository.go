package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cash-request-service/internal/models"
)

// UserRepository abstracts the user registry: profiles, locations and device tokens.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.User, bool, error)
	RecordLocation(ctx context.Context, userID string, loc models.Location) error
	SetDeviceToken(ctx context.Context, userID string, token string) error
	ListCandidates(ctx context.Context, excludeUserID string) ([]models.Candidate, error)
	ClearDeviceTokens(ctx context.Context, tokens []string) (int64, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

type userRow struct {
	ID          string          `db:"id"`
	Email       *string         `db:"email"`
	Phone       *string         `db:"phone"`
	Name        string          `db:"name"`
	GivenName   string          `db:"given_name"`
	FamilyName  string          `db:"family_name"`
	Picture     string          `db:"picture"`
	DeviceToken *string         `db:"device_token"`
	CurrentLat  sql.NullFloat64 `db:"current_lat"`
	CurrentLng  sql.NullFloat64 `db:"current_lng"`
	CurrentAcc  *float64        `db:"current_accuracy"`
	CurrentAt   sql.NullTime    `db:"current_at"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r userRow) toModel() models.User {
	u := models.User{
		ID:          r.ID,
		Email:       r.Email,
		Phone:       r.Phone,
		Name:        r.Name,
		GivenName:   r.GivenName,
		FamilyName:  r.FamilyName,
		Picture:     r.Picture,
		DeviceToken: r.DeviceToken,
		CreatedAt:   r.CreatedAt,
	}
	if r.CurrentLat.Valid && r.CurrentLng.Valid {
		u.CurrentLocation = &models.Location{
			Latitude:  r.CurrentLat.Float64,
			Longitude: r.CurrentLng.Float64,
			Accuracy:  r.CurrentAcc,
			Timestamp: r.CurrentAt.Time,
		}
	}
	return u
}

const userColumns = `id, email, phone, name, given_name, family_name, picture, device_token,
        current_lat, current_lng, current_accuracy, current_at, created_at`

// GetUser fetches a user with its location history, most recent first.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	user := row.toModel()
	err = r.db.SelectContext(ctx, &user.LocationHistory, `SELECT latitude, longitude, accuracy, recorded_at
        FROM user_locations WHERE user_id=$1 ORDER BY recorded_at DESC, id DESC LIMIT $2`, userID, models.LocationHistoryLimit)
	return user, err
}

// UpsertProfile creates a user or updates the one matching email, phone or external uid.
func (r *UserRepo) UpsertProfile(ctx context.Context, p models.Profile) (models.User, bool, error) {
	var userID string
	err := r.db.GetContext(ctx, &userID, `SELECT id FROM users
        WHERE ($1 <> '' AND email=$1) OR ($2 <> '' AND phone=$2) OR ($3 <> '' AND external_uid=$3)
        LIMIT 1`, p.Email, p.Phone, p.ExternalUID)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		userID = uuid.NewString()
		_, err = r.db.ExecContext(ctx, `INSERT INTO users (id, email, phone, external_uid, name, given_name, family_name, picture)
            VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)`,
			userID, p.Email, p.Phone, p.ExternalUID, p.Name, p.GivenName, p.FamilyName, p.Picture)
	case err == nil:
		_, err = r.db.ExecContext(ctx, `UPDATE users SET
            email = COALESCE(NULLIF($2, ''), email),
            phone = COALESCE(NULLIF($3, ''), phone),
            external_uid = COALESCE(NULLIF($4, ''), external_uid),
            name = COALESCE(NULLIF($5, ''), name),
            given_name = COALESCE(NULLIF($6, ''), given_name),
            family_name = COALESCE(NULLIF($7, ''), family_name),
            picture = COALESCE(NULLIF($8, ''), picture),
            updated_at = NOW()
            WHERE id=$1`,
			userID, p.Email, p.Phone, p.ExternalUID, p.Name, p.GivenName, p.FamilyName, p.Picture)
	}
	if err != nil {
		return models.User{}, false, err
	}

	if p.DeviceToken != "" {
		if err := r.SetDeviceToken(ctx, userID, p.DeviceToken); err != nil {
			return models.User{}, false, err
		}
	}
	if p.Location != nil {
		if err := r.RecordLocation(ctx, userID, *p.Location); err != nil {
			return models.User{}, false, err
		}
	}

	user, err := r.GetUser(ctx, userID)
	return user, created, err
}

// RecordLocation prepends a location to the capped history and makes it current.
func (r *UserRepo) RecordLocation(ctx context.Context, userID string, loc models.Location) error {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE users SET current_lat=$2, current_lng=$3, current_accuracy=$4, current_at=$5, updated_at=NOW()
        WHERE id=$1`, userID, loc.Latitude, loc.Longitude, loc.Accuracy, loc.Timestamp)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrUserNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO user_locations (user_id, latitude, longitude, accuracy, recorded_at)
        VALUES ($1, $2, $3, $4, $5)`, userID, loc.Latitude, loc.Longitude, loc.Accuracy, loc.Timestamp); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_locations WHERE user_id=$1 AND id NOT IN (
            SELECT id FROM user_locations WHERE user_id=$1 ORDER BY recorded_at DESC, id DESC LIMIT $2)`,
		userID, models.LocationHistoryLimit); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// SetDeviceToken stores the push token for a user.
func (r *UserRepo) SetDeviceToken(ctx context.Context, userID string, token string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET device_token=NULLIF($2, ''), updated_at=NOW() WHERE id=$1`, userID, token)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

type candidateRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	DeviceToken string          `db:"device_token"`
	CurrentLat  sql.NullFloat64 `db:"current_lat"`
	CurrentLng  sql.NullFloat64 `db:"current_lng"`
	CurrentAt   sql.NullTime    `db:"current_at"`
	LatestLat   sql.NullFloat64 `db:"latest_lat"`
	LatestLng   sql.NullFloat64 `db:"latest_lng"`
	LatestAt    sql.NullTime    `db:"latest_at"`
}

// ListCandidates returns every user except excludeUserID with its last known locations.
func (r *UserRepo) ListCandidates(ctx context.Context, excludeUserID string) ([]models.Candidate, error) {
	query := `SELECT u.id, u.name, COALESCE(u.device_token, '') AS device_token,
        u.current_lat, u.current_lng, u.current_at,
        l.latitude AS latest_lat, l.longitude AS latest_lng, l.recorded_at AS latest_at
        FROM users u
        LEFT JOIN LATERAL (
            SELECT latitude, longitude, recorded_at FROM user_locations
            WHERE user_id = u.id ORDER BY recorded_at DESC, id DESC LIMIT 1
        ) l ON TRUE
        WHERE u.id <> $1`
	rows, err := r.db.QueryxContext(ctx, query, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Candidate
	for rows.Next() {
		var row candidateRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		c := models.Candidate{ID: row.ID, Name: row.Name, DeviceToken: row.DeviceToken}
		if row.CurrentLat.Valid && row.CurrentLng.Valid {
			c.Current = &models.Location{Latitude: row.CurrentLat.Float64, Longitude: row.CurrentLng.Float64, Timestamp: row.CurrentAt.Time}
		}
		if row.LatestLat.Valid && row.LatestLng.Valid {
			c.Latest = &models.Location{Latitude: row.LatestLat.Float64, Longitude: row.LatestLng.Float64, Timestamp: row.LatestAt.Time}
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ClearDeviceTokens unsets the given tokens on whichever users hold them.
func (r *UserRepo) ClearDeviceTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET device_token=NULL, updated_at=NOW() WHERE device_token = ANY($1)`, pq.Array(tokens))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
