package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		project_id   TEXT NOT NULL,
		type         TEXT NOT NULL,
		milestone_id TEXT,
		message      TEXT NOT NULL,
		payload      JSONB NOT NULL,
		is_read      BOOLEAN NOT NULL DEFAULT false,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS project_activity_log (
		id           BIGSERIAL PRIMARY KEY,
		project_id   TEXT NOT NULL,
		kind         TEXT NOT NULL,
		event_type   TEXT NOT NULL,
		milestone_id TEXT,
		payload      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS project_activity_project_idx ON project_activity_log (project_id, id)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id            BIGSERIAL PRIMARY KEY,
		topic         TEXT NOT NULL,
		routing_key   TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		trace_id      TEXT NOT NULL DEFAULT '',
		payload       JSONB NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending',
		retry_count   INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_pending_idx ON outbox_events (status, next_retry_at)`,
}

// EnsureSchema creates the tables used by the worker and the outbox.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
