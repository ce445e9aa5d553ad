package database

import (
	"context"
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS processing_runs (
    session_id     TEXT PRIMARY KEY,
    window_type    TEXT NOT NULL,
    window_start   TIMESTAMPTZ NOT NULL,
    window_end     TIMESTAMPTZ NOT NULL,
    status         TEXT NOT NULL,
    attempt_count  INTEGER NOT NULL DEFAULT 0,
    started_at     TIMESTAMPTZ,
    completed_at   TIMESTAMPTZ,
    failure_reason TEXT,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processing_runs_status ON processing_runs (status, window_start);

CREATE TABLE IF NOT EXISTS products (
    id           BIGSERIAL PRIMARY KEY,
    session_id   TEXT NOT NULL REFERENCES processing_runs (session_id),
    category     TEXT NOT NULL,
    availability TEXT NOT NULL,
    mandatory    BOOLEAN NOT NULL DEFAULT TRUE,
    provider     TEXT,
    tier         TEXT,
    local_path   TEXT,
    size_bytes   BIGINT,
    checksum     TEXT,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (session_id, category)
);

CREATE TABLE IF NOT EXISTS download_attempts (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    category    TEXT NOT NULL,
    provider    TEXT NOT NULL,
    tier        TEXT NOT NULL,
    remote_path TEXT NOT NULL,
    attempt     INTEGER NOT NULL,
    outcome     TEXT NOT NULL,
    error       TEXT,
    started_at  TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_download_attempts_session ON download_attempts (session_id, started_at);
`

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so repeated runs are safe.
func Migrate(ctx context.Context, db ports.Database) error {
	if _, err := db.Execute(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
