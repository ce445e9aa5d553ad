// Package processor is the boundary to the external scientific processing
// engine. The tracker invokes it exactly once per ready run; everything
// behind Invoke is opaque to the rest of the pipeline.
package processor

import (
	"context"
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

// Outcome is what one engine invocation produced.
type Outcome struct {
	// Success reports whether the engine completed the run.
	Success bool
	// Diagnostics carries the engine's failure output when Success is false.
	Diagnostics string
	// ExitCode is the engine process exit code where applicable.
	ExitCode int
}

// Invocation is everything the engine needs for one run.
type Invocation struct {
	SessionID string
	Window    entity.ProcessingWindow
	// Products maps each available category to its artifact location.
	Products map[entity.ProductCategory]string
}

// Processor runs the external engine for one ready run.
type Processor interface {
	// Invoke blocks until the engine finishes or ctx expires. A non-nil
	// error means the engine could not be run at all; an engine that ran
	// and failed comes back as a !Success outcome with nil error.
	Invoke(ctx context.Context, inv Invocation) (Outcome, error)
}

// ProcessingError wraps an engine failure for the operator-visible surface.
type ProcessingError struct {
	SessionID string
	Outcome   Outcome
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed for %s: exit %d: %s",
		e.SessionID, e.Outcome.ExitCode, e.Outcome.Diagnostics)
}
