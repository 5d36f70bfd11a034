package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTimeout = 5 * time.Second

// uniqueViolation is the SQLSTATE raised by a UNIQUE constraint.
const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a pgx connection pool and performs a Ping to ensure connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT UNIQUE NOT NULL,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'employee', 'user')),
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS issues (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	category    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	address     TEXT,
	images      JSONB NOT NULL DEFAULT '[]',
	user_id     TEXT NOT NULL REFERENCES users (id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS issue_status_history (
	id         BIGSERIAL PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues (id),
	status     TEXT NOT NULL,
	changed_by TEXT NOT NULL,
	note       TEXT,
	changed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_events (
	id          BIGSERIAL PRIMARY KEY,
	issue_id    TEXT NOT NULL,
	status      TEXT NOT NULL,
	changed_by  TEXT NOT NULL,
	note        TEXT,
	occurred_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues (status);
CREATE INDEX IF NOT EXISTS idx_issues_user_id ON issues (user_id);
CREATE INDEX IF NOT EXISTS idx_issue_status_history_issue ON issue_status_history (issue_id, changed_at);
`

// AutoMigrate creates tables if they don't exist.
func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
