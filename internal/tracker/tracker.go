// Package tracker owns the persisted run state machine. All transitions go
// through conditional updates keyed by session_id, so any number of workers
// can race on the same window and the engine still fires exactly once.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/processor"
	"github.com/georgisalene/gnss-rt/internal/registry"
)

// Readiness is the result of one readiness evaluation.
type Readiness struct {
	// Ready reports whether every mandatory category is available.
	Ready bool
	// BecameReady is true for exactly one caller: the one whose evaluation
	// moved the run from acquiring to ready. Only that caller may Trigger.
	BecameReady bool
	// Missing lists the mandatory categories still unresolved.
	Missing []entity.ProductCategory
}

// RunEvent is published on terminal transitions for downstream consumers.
type RunEvent struct {
	SessionID     string                            `json:"session_id"`
	Status        entity.RunStatus                  `json:"status"`
	WindowType    entity.WindowType                 `json:"window_type"`
	WindowStart   time.Time                         `json:"window_start"`
	WindowEnd     time.Time                         `json:"window_end"`
	Artifacts     map[entity.ProductCategory]string `json:"artifacts,omitempty"`
	FailureReason string                            `json:"failure_reason,omitempty"`
	CompletedAt   time.Time                         `json:"completed_at"`
}

// Tracker coordinates run lifecycle, readiness and the engine trigger.
type Tracker struct {
	runs      ports.ProcessingRunRepository
	products  ports.ProductRepository
	registry  *registry.Registry
	processor processor.Processor
	queue     ports.Queue
	eventKey  string
	logger    ports.Logger
	metrics   ports.Metrics
}

func New(
	repos ports.Repositories,
	reg *registry.Registry,
	proc processor.Processor,
	queue ports.Queue,
	eventKey string,
	logger ports.Logger,
	metrics ports.Metrics,
) *Tracker {
	return &Tracker{
		runs:      repos.Runs(),
		products:  repos.Products(),
		registry:  reg,
		processor: proc,
		queue:     queue,
		eventKey:  eventKey,
		logger:    logger,
		metrics:   metrics,
	}
}

// GetOrCreate returns the run for the window, creating the pending row on
// first sight. Idempotent under concurrency: one row per session, ever.
func (t *Tracker) GetOrCreate(ctx context.Context, window entity.ProcessingWindow) (*entity.ProcessingRun, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	run, created, err := t.runs.GetOrCreate(ctx, window)
	if err != nil {
		return nil, err
	}
	if created {
		t.logger.Info("Run created",
			"session_id", run.SessionID,
			"window_type", run.WindowType,
			"window_start", run.WindowStart)
		t.metrics.IncrementCounter("tracker.runs_created",
			map[string]string{"window_type": string(run.WindowType)})
	}
	return run, nil
}

// BeginAcquisition moves the run from pending to acquiring. A run already
// acquiring is fine (another worker got there first); any other state is a
// conflict for the caller to handle.
func (t *Tracker) BeginAcquisition(ctx context.Context, sessionID string) error {
	err := t.runs.CompareAndSetStatus(ctx, sessionID, entity.RunPending, entity.RunAcquiring)
	if errors.Is(err, ports.ErrStaleStatus) {
		run, getErr := t.runs.Get(ctx, sessionID)
		if getErr != nil {
			return getErr
		}
		if run.Status == entity.RunAcquiring {
			return nil
		}
		return fmt.Errorf("run %s is %s: %w", sessionID, run.Status, entity.ErrStateConflict)
	}
	return err
}

// RecordProduct attaches a resolved product to its run.
func (t *Tracker) RecordProduct(ctx context.Context, product *entity.Product) error {
	if !product.Availability.Terminal() {
		return fmt.Errorf("product %s/%s is not terminal", product.SessionID, product.Category)
	}
	return t.products.Upsert(ctx, product)
}

// EvaluateReadiness checks whether every mandatory category is available
// and, if so, races to move the run to ready. Exactly one caller wins that
// race and gets BecameReady; the pipeline triggers the engine only from
// that caller.
func (t *Tracker) EvaluateReadiness(ctx context.Context, sessionID string) (Readiness, error) {
	products, err := t.products.ListBySession(ctx, sessionID)
	if err != nil {
		return Readiness{}, err
	}

	available := make(map[entity.ProductCategory]bool, len(products))
	for _, p := range products {
		if p.IsAvailable() {
			available[p.Category] = true
		}
	}

	var missing []entity.ProductCategory
	for _, cat := range t.registry.MandatoryCategories() {
		if !available[cat] {
			missing = append(missing, cat)
		}
	}

	if len(missing) > 0 {
		t.logger.Info("Run not ready",
			"session_id", sessionID,
			"missing", fmt.Sprint(missing))
		return Readiness{Ready: false, Missing: missing}, nil
	}

	err = t.runs.CompareAndSetStatus(ctx, sessionID, entity.RunAcquiring, entity.RunReady)
	switch {
	case err == nil:
		t.metrics.IncrementCounter("tracker.runs_ready", nil)
		return Readiness{Ready: true, BecameReady: true}, nil
	case errors.Is(err, ports.ErrStaleStatus):
		// Another evaluation won, or the run is already past ready.
		return Readiness{Ready: true}, nil
	default:
		return Readiness{}, err
	}
}

// Trigger fires the engine for a ready run. The ready -> running update is
// the atomic guard: a second Trigger for the same session loses the update
// and gets ErrStateConflict without the engine ever seeing the run twice.
func (t *Tracker) Trigger(ctx context.Context, sessionID string) error {
	err := t.runs.MarkRunning(ctx, sessionID, time.Now().UTC())
	if errors.Is(err, ports.ErrStaleStatus) {
		// A double trigger means the readiness winner protocol was broken
		// somewhere; log loudly, never ignore.
		t.logger.Error("Trigger refused: run not in ready state",
			"error", entity.ErrStateConflict, "session_id", sessionID)
		t.metrics.IncrementCounter("tracker.trigger_conflicts", nil)
		return fmt.Errorf("trigger %s: %w", sessionID, entity.ErrStateConflict)
	}
	if err != nil {
		return err
	}

	run, err := t.runs.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	artifacts, err := t.artifacts(ctx, sessionID)
	if err != nil {
		return err
	}

	outcome, err := t.processor.Invoke(ctx, processor.Invocation{
		SessionID: sessionID,
		Window:    run.Window(),
		Products:  artifacts,
	})
	if err != nil {
		failErr := t.finish(ctx, run, entity.RunFailed, fmt.Sprintf("engine invocation error: %v", err), artifacts)
		if failErr != nil {
			return failErr
		}
		return &processor.ProcessingError{SessionID: sessionID, Outcome: processor.Outcome{Diagnostics: err.Error(), ExitCode: -1}}
	}

	if !outcome.Success {
		if err := t.finish(ctx, run, entity.RunFailed, outcome.Diagnostics, artifacts); err != nil {
			return err
		}
		return &processor.ProcessingError{SessionID: sessionID, Outcome: outcome}
	}

	return t.finish(ctx, run, entity.RunComplete, "", artifacts)
}

// Reprocess resets a failed run to pending so a later pass picks it up
// again. Failed runs are never reset automatically.
func (t *Tracker) Reprocess(ctx context.Context, sessionID string) error {
	err := t.runs.Reprocess(ctx, sessionID)
	if errors.Is(err, ports.ErrStaleStatus) {
		run, getErr := t.runs.Get(ctx, sessionID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("cannot reprocess run %s in state %s: %w",
			sessionID, run.Status, entity.ErrStateConflict)
	}
	if err != nil {
		return err
	}

	t.logger.Info("Run queued for reprocessing", "session_id", sessionID)
	t.metrics.IncrementCounter("tracker.reprocessed", nil)
	return nil
}

// FailAcquisition terminates an acquiring run that policy decided to give
// up on.
func (t *Tracker) FailAcquisition(ctx context.Context, sessionID, reason string) error {
	err := t.runs.Finish(ctx, sessionID, entity.RunAcquiring, entity.RunFailed, reason)
	if errors.Is(err, ports.ErrStaleStatus) {
		return fmt.Errorf("fail acquisition %s: %w", sessionID, entity.ErrStateConflict)
	}
	if err != nil {
		return err
	}
	t.publishEvent(ctx, sessionID, entity.RunFailed, reason, nil)
	return nil
}

func (t *Tracker) finish(ctx context.Context, run *entity.ProcessingRun, terminal entity.RunStatus, reason string, artifacts map[entity.ProductCategory]string) error {
	if err := t.runs.Finish(ctx, run.SessionID, entity.RunRunning, terminal, reason); err != nil {
		return err
	}

	t.logger.Info("Run closed",
		"session_id", run.SessionID,
		"status", terminal,
		"reason", reason)
	t.metrics.IncrementCounter("tracker.runs_finished",
		map[string]string{"status": string(terminal)})

	t.publishEvent(ctx, run.SessionID, terminal, reason, artifacts)
	return nil
}

// publishEvent emits the terminal event. Publish failures are logged, not
// propagated: the run state in the database is the source of truth.
func (t *Tracker) publishEvent(ctx context.Context, sessionID string, status entity.RunStatus, reason string, artifacts map[entity.ProductCategory]string) {
	if t.queue == nil {
		return
	}

	run, err := t.runs.Get(ctx, sessionID)
	if err != nil {
		t.logger.Error("Failed to load run for event", "error", err, "session_id", sessionID)
		return
	}

	event := RunEvent{
		SessionID:     sessionID,
		Status:        status,
		WindowType:    run.WindowType,
		WindowStart:   run.WindowStart,
		WindowEnd:     run.WindowEnd,
		Artifacts:     artifacts,
		FailureReason: reason,
		CompletedAt:   time.Now().UTC(),
	}
	if err := t.queue.Publish(ctx, &ports.QueueMessage{Target: t.eventKey, Body: event}); err != nil {
		t.logger.Error("Failed to publish run event", "error", err, "session_id", sessionID)
	}
}

func (t *Tracker) artifacts(ctx context.Context, sessionID string) (map[entity.ProductCategory]string, error) {
	products, err := t.products.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make(map[entity.ProductCategory]string)
	for _, p := range products {
		if p.IsAvailable() && p.LocalPath != nil {
			out[p.Category] = *p.LocalPath
		}
	}
	return out, nil
}
