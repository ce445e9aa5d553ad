package entity

import (
	"time"

	"github.com/google/uuid"
)

// AttemptOutcome classifies how a single download attempt ended.
type AttemptOutcome string

const (
	AttemptSuccess          AttemptOutcome = "success"
	AttemptTransientFailure AttemptOutcome = "transient_failure"
	AttemptPermanentFailure AttemptOutcome = "permanent_failure"
)

// DownloadAttempt is one append-only audit record of a fetch attempt against
// one source. Attempts are never updated or deleted after insertion.
type DownloadAttempt struct {
	ID         string          `db:"id"`
	SessionID  string          `db:"session_id"`
	Category   ProductCategory `db:"category"`
	Provider   string          `db:"provider"`
	Tier       ProductTier     `db:"tier"`
	RemotePath string          `db:"remote_path"`
	Attempt    int             `db:"attempt"`
	Outcome    AttemptOutcome  `db:"outcome"`
	Error      *string         `db:"error"`
	StartedAt  time.Time       `db:"started_at"`
	DurationMS int64           `db:"duration_ms"`
}

// NewDownloadAttempt records the outcome of one fetch against one source.
// attempt is 1-based within the (session, category, source) triple.
func NewDownloadAttempt(sessionID string, category ProductCategory, source ProductSource, remotePath string, attempt int, outcome AttemptOutcome, attemptErr error, startedAt time.Time, duration time.Duration) *DownloadAttempt {
	a := &DownloadAttempt{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Category:   category,
		Provider:   source.Provider,
		Tier:       source.Tier,
		RemotePath: remotePath,
		Attempt:    attempt,
		Outcome:    outcome,
		StartedAt:  startedAt.UTC(),
		DurationMS: duration.Milliseconds(),
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		a.Error = &msg
	}
	return a
}
