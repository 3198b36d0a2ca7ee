package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"cash-request-service/internal/logger"
)

// Connect initializes the database connection and runs migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            email TEXT UNIQUE,
            phone TEXT UNIQUE,
            external_uid TEXT UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            given_name TEXT NOT NULL DEFAULT '',
            family_name TEXT NOT NULL DEFAULT '',
            picture TEXT NOT NULL DEFAULT '',
            device_token TEXT,
            current_lat DOUBLE PRECISION,
            current_lng DOUBLE PRECISION,
            current_accuracy DOUBLE PRECISION,
            current_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS users_device_token_idx ON users (device_token);`,
	`CREATE TABLE IF NOT EXISTS user_locations (
            id BIGSERIAL PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            accuracy DOUBLE PRECISION,
            recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS user_locations_user_idx ON user_locations (user_id, recorded_at DESC);`,
	`CREATE TABLE IF NOT EXISTS requests (
            id UUID PRIMARY KEY,
            requester_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            requester_name TEXT NOT NULL DEFAULT '',
            amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
            tip NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (tip >= 0),
            instructions TEXT NOT NULL DEFAULT '',
            kind TEXT NOT NULL CHECK (kind IN ('cash', 'online')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS request_copies (
            request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            role TEXT NOT NULL CHECK (role IN ('sent', 'incoming')),
            status TEXT NOT NULL,
            conversation_id UUID,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (request_id, user_id, role)
        );`,
	`CREATE INDEX IF NOT EXISTS request_copies_owner_idx ON request_copies (user_id, role, status);`,
	`CREATE TABLE IF NOT EXISTS request_acceptors (
            request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            acceptor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            acceptor_name TEXT NOT NULL DEFAULT '',
            conversation_id UUID NOT NULL,
            accepted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (request_id, acceptor_id)
        );`,
	`CREATE TABLE IF NOT EXISTS conversations (
            id UUID PRIMARY KEY,
            request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            requester_id UUID NOT NULL,
            recipient_id UUID NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (request_id, recipient_id)
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL,
            text TEXT NOT NULL,
            is_system BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS call_sessions (
            conversation_id UUID PRIMARY KEY REFERENCES conversations(id) ON DELETE CASCADE,
            caller_id UUID NOT NULL,
            recipient_id UUID NOT NULL,
            status TEXT NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	logger.Global().Info("database migrations applied", zap.Int("statements", len(migrations)))
	return nil
}
