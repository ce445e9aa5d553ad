package ports

import (
	"context"
	"errors"
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleStatus is returned by CompareAndSetStatus when the row was not
	// in the expected status. Exactly one caller wins a contended transition;
	// all others get this error.
	ErrStaleStatus = errors.New("run status changed concurrently")
)

// ProcessingRunRepository persists run lifecycle state. One row per session.
type ProcessingRunRepository interface {
	// GetOrCreate returns the existing run for the window's session, or
	// inserts a pending one. Concurrent callers for the same session all get
	// the same row; created reports whether this call inserted it.
	GetOrCreate(ctx context.Context, window entity.ProcessingWindow) (run *entity.ProcessingRun, created bool, err error)

	Get(ctx context.Context, sessionID string) (*entity.ProcessingRun, error)

	// CompareAndSetStatus transitions the run from expected to next only if
	// it is still in expected, returning ErrStaleStatus otherwise. This is
	// the exactly-once guard for trigger and readiness transitions.
	CompareAndSetStatus(ctx context.Context, sessionID string, expected, next entity.RunStatus) error

	// MarkRunning transitions ready -> running, stamps started_at and bumps
	// the attempt counter, under the same compare-and-set discipline.
	MarkRunning(ctx context.Context, sessionID string, startedAt time.Time) error

	// Finish moves a running or acquiring run into a terminal state with an
	// optional failure reason.
	Finish(ctx context.Context, sessionID string, expected, terminal entity.RunStatus, failureReason string) error

	// Reprocess atomically resets a failed run to pending. Returns
	// ErrStaleStatus if the run is not failed.
	Reprocess(ctx context.Context, sessionID string) error

	// ListByStatus returns runs in the given status, oldest window first.
	ListByStatus(ctx context.Context, status entity.RunStatus, limit int) ([]*entity.ProcessingRun, error)
}

// ProductRepository persists per-category resolution state for runs.
type ProductRepository interface {
	// Upsert inserts or replaces the product row for (session, category).
	Upsert(ctx context.Context, product *entity.Product) error

	Get(ctx context.Context, sessionID string, category entity.ProductCategory) (*entity.Product, error)

	// ListBySession returns all product rows for the session.
	ListBySession(ctx context.Context, sessionID string) ([]*entity.Product, error)
}

// DownloadAttemptRepository is the append-only attempt audit log.
type DownloadAttemptRepository interface {
	// Append inserts an attempt record. Records are never updated.
	Append(ctx context.Context, attempt *entity.DownloadAttempt) error

	// ListBySession returns the attempts for a session in insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]*entity.DownloadAttempt, error)
}

type Repositories interface {
	Runs() ProcessingRunRepository
	Products() ProductRepository
	Attempts() DownloadAttemptRepository
}
