package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

type processingRunRepository struct {
	baseRepository
}

func newProcessingRunRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) ports.ProcessingRunRepository {
	return &processingRunRepository{
		baseRepository: newBaseRepository(db, logger, metrics, "processing_runs"),
	}
}

// GetOrCreate inserts a pending run unless one already exists for the
// session. ON CONFLICT DO NOTHING keeps the insert race-free; whoever loses
// the race reads the winner's row. Insert and read-back share one
// transaction so the returned row is the one this call observed.
func (r *processingRunRepository) GetOrCreate(ctx context.Context, window entity.ProcessingWindow) (*entity.ProcessingRun, bool, error) {
	run := entity.NewProcessingRun(window)
	r.countOp("get_or_create")

	insertSQL, insertArgs, err := r.qb.
		Insert(r.table).
		Columns("session_id", "window_type", "window_start", "window_end", "status",
			"attempt_count", "created_at", "updated_at").
		Values(run.SessionID, run.WindowType, run.WindowStart, run.WindowEnd, run.Status,
			run.AttemptCount, run.CreatedAt, run.UpdatedAt).
		Suffix("ON CONFLICT (session_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	selectSQL, selectArgs, err := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"session_id": run.SessionID}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	var stored entity.ProcessingRun
	var created bool
	err = r.db.Transaction(ctx, func(tx ports.Transaction) error {
		result, err := tx.Execute(ctx, insertSQL, insertArgs...)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		inserted, _ := result.RowsAffected()
		created = inserted > 0
		return tx.Get(ctx, &stored, selectSQL, selectArgs...)
	})
	if err != nil {
		r.logger.Error("Failed to get or create run", "error", err, "session_id", run.SessionID)
		r.countError("get_or_create")
		return nil, false, err
	}

	return &stored, created, nil
}

func (r *processingRunRepository) Get(ctx context.Context, sessionID string) (*entity.ProcessingRun, error) {
	var run entity.ProcessingRun
	r.countOp("get")

	query := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"session_id": sessionID})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	err = r.db.Get(ctx, &run, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get run", "error", err, "session_id", sessionID)
		r.countError("get")
		return nil, fmt.Errorf("get run: %w", err)
	}

	return &run, nil
}

// CompareAndSetStatus performs the transition as a single conditional UPDATE.
// The WHERE clause on the expected status makes the row the serialization
// point: exactly one concurrent caller sees RowsAffected == 1.
func (r *processingRunRepository) CompareAndSetStatus(ctx context.Context, sessionID string, expected, next entity.RunStatus) error {
	if !expected.CanTransitionTo(next) {
		return entity.ErrInvalidTransition
	}
	r.countOp("cas_status")

	query := r.qb.
		Update(r.table).
		Set("status", next).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"session_id": sessionID, "status": expected})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to update run status", "error", err, "session_id", sessionID)
		r.countError("cas_status")
		return fmt.Errorf("update run status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ports.ErrStaleStatus
	}

	r.logger.Info("Run status changed",
		"session_id", sessionID, "from", expected, "to", next)
	return nil
}

// MarkRunning is the ready -> running transition with the start bookkeeping
// folded into the same conditional UPDATE.
func (r *processingRunRepository) MarkRunning(ctx context.Context, sessionID string, startedAt time.Time) error {
	r.countOp("mark_running")

	query := r.qb.
		Update(r.table).
		Set("status", entity.RunRunning).
		Set("started_at", startedAt.UTC()).
		Set("updated_at", time.Now().UTC()).
		Set("attempt_count", squirrel.Expr("attempt_count + 1")).
		Where(squirrel.Eq{"session_id": sessionID, "status": entity.RunReady})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to mark run running", "error", err, "session_id", sessionID)
		r.countError("mark_running")
		return fmt.Errorf("mark run running: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ports.ErrStaleStatus
	}
	return nil
}

func (r *processingRunRepository) Finish(ctx context.Context, sessionID string, expected, terminal entity.RunStatus, failureReason string) error {
	if !terminal.Terminal() {
		return entity.ErrInvalidTransition
	}
	if !expected.CanTransitionTo(terminal) {
		return entity.ErrInvalidTransition
	}
	r.countOp("finish")

	now := time.Now().UTC()
	query := r.qb.
		Update(r.table).
		Set("status", terminal).
		Set("completed_at", now).
		Set("updated_at", now).
		Where(squirrel.Eq{"session_id": sessionID, "status": expected})
	if failureReason != "" {
		query = query.Set("failure_reason", failureReason)
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to finish run", "error", err, "session_id", sessionID)
		r.countError("finish")
		return fmt.Errorf("finish run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ports.ErrStaleStatus
	}

	r.logger.Info("Run finished",
		"session_id", sessionID, "status", terminal, "reason", failureReason)
	return nil
}

// Reprocess resets a failed run to pending. The attempt counter is kept.
func (r *processingRunRepository) Reprocess(ctx context.Context, sessionID string) error {
	r.countOp("reprocess")

	query := r.qb.
		Update(r.table).
		Set("status", entity.RunPending).
		Set("started_at", nil).
		Set("completed_at", nil).
		Set("failure_reason", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"session_id": sessionID, "status": entity.RunFailed})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to reprocess run", "error", err, "session_id", sessionID)
		r.countError("reprocess")
		return fmt.Errorf("reprocess run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ports.ErrStaleStatus
	}

	r.logger.Info("Run reset for reprocessing", "session_id", sessionID)
	return nil
}

func (r *processingRunRepository) ListByStatus(ctx context.Context, status entity.RunStatus, limit int) ([]*entity.ProcessingRun, error) {
	r.countOp("list_by_status")

	query := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"status": status}).
		OrderBy("window_start ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var runs []*entity.ProcessingRun
	if err := r.db.Select(ctx, &runs, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to list runs", "error", err, "status", status)
		r.countError("list_by_status")
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}
