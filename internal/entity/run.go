package entity

import "time"

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunAcquiring RunStatus = "acquiring"
	RunReady     RunStatus = "ready"
	RunRunning   RunStatus = "running"
	RunComplete  RunStatus = "complete"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunComplete || s == RunFailed
}

// CanTransitionTo enforces the run state machine:
//
//	pending -> acquiring -> ready -> running -> complete | failed
//
// acquiring may also fail directly when mandatory products are unavailable,
// and a failed run may be reset to pending by an explicit reprocess.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunAcquiring
	case RunAcquiring:
		return next == RunReady || next == RunFailed
	case RunReady:
		return next == RunRunning
	case RunRunning:
		return next == RunComplete || next == RunFailed
	case RunFailed:
		return next == RunPending
	default:
		return false
	}
}

// ProcessingRun is the persistent record for one processing window. The
// session ID is the natural key; there is exactly one run row per session.
type ProcessingRun struct {
	SessionID     string     `db:"session_id"`
	WindowType    WindowType `db:"window_type"`
	WindowStart   time.Time  `db:"window_start"`
	WindowEnd     time.Time  `db:"window_end"`
	Status        RunStatus  `db:"status"`
	AttemptCount  int        `db:"attempt_count"`
	StartedAt     *time.Time `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
	FailureReason *string    `db:"failure_reason"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// NewProcessingRun creates a pending run for a window.
func NewProcessingRun(w ProcessingWindow) *ProcessingRun {
	now := time.Now().UTC()
	return &ProcessingRun{
		SessionID:   w.SessionID(),
		WindowType:  w.Type,
		WindowStart: w.Start.UTC(),
		WindowEnd:   w.End.UTC(),
		Status:      RunPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Window reconstructs the processing window this run was created for.
func (r *ProcessingRun) Window() ProcessingWindow {
	return ProcessingWindow{
		Type:  r.WindowType,
		Start: r.WindowStart,
		End:   r.WindowEnd,
	}
}

func (r *ProcessingRun) transition(next RunStatus) error {
	if r.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// StartAcquisition moves the run from pending to acquiring.
func (r *ProcessingRun) StartAcquisition() error {
	return r.transition(RunAcquiring)
}

// MarkReady moves the run from acquiring to ready once every mandatory
// product is available.
func (r *ProcessingRun) MarkReady() error {
	return r.transition(RunReady)
}

// Start moves the run from ready to running and stamps the start time.
func (r *ProcessingRun) Start() error {
	if r.Status != RunReady {
		if r.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		return ErrNotReady
	}
	if err := r.transition(RunRunning); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.StartedAt = &now
	r.AttemptCount++
	return nil
}

// Complete moves a running run to complete.
func (r *ProcessingRun) Complete() error {
	if r.Status != RunRunning {
		if r.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		return ErrNotRunning
	}
	if err := r.transition(RunComplete); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.CompletedAt = &now
	return nil
}

// Fail moves an acquiring or running run to failed with a reason.
func (r *ProcessingRun) Fail(reason string) error {
	if err := r.transition(RunFailed); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.CompletedAt = &now
	if reason != "" {
		r.FailureReason = &reason
	}
	return nil
}

// Reset moves a failed run back to pending for an explicit reprocess. The
// failure reason and timestamps are cleared; the attempt count is kept so the
// total number of executions remains visible.
func (r *ProcessingRun) Reset() error {
	if r.Status != RunFailed {
		return ErrInvalidTransition
	}
	r.Status = RunPending
	r.StartedAt = nil
	r.CompletedAt = nil
	r.FailureReason = nil
	r.UpdatedAt = time.Now().UTC()
	return nil
}
