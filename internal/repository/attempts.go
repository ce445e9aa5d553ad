package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

type downloadAttemptRepository struct {
	baseRepository
}

func newDownloadAttemptRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) ports.DownloadAttemptRepository {
	return &downloadAttemptRepository{
		baseRepository: newBaseRepository(db, logger, metrics, "download_attempts"),
	}
}

// Append inserts an attempt record. There is no update path; the table is an
// append-only audit log.
func (r *downloadAttemptRepository) Append(ctx context.Context, attempt *entity.DownloadAttempt) error {
	r.countOp("append")

	query := r.qb.
		Insert(r.table).
		Columns("id", "session_id", "category", "provider", "tier", "remote_path",
			"attempt", "outcome", "error", "started_at", "duration_ms").
		Values(attempt.ID, attempt.SessionID, attempt.Category, attempt.Provider,
			attempt.Tier, attempt.RemotePath, attempt.Attempt, attempt.Outcome,
			attempt.Error, attempt.StartedAt, attempt.DurationMS)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.Execute(ctx, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to append download attempt",
			"error", err, "session_id", attempt.SessionID, "category", attempt.Category)
		r.countError("append")
		return fmt.Errorf("append attempt: %w", err)
	}

	return nil
}

func (r *downloadAttemptRepository) ListBySession(ctx context.Context, sessionID string) ([]*entity.DownloadAttempt, error) {
	r.countOp("list_by_session")

	query := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("started_at ASC", "id ASC")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var attempts []*entity.DownloadAttempt
	if err := r.db.Select(ctx, &attempts, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to list download attempts", "error", err, "session_id", sessionID)
		r.countError("list_by_session")
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return attempts, nil
}
