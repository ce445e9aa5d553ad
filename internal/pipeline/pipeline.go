// Package pipeline drives whole processing windows end to end: run
// bookkeeping, parallel product resolution, readiness evaluation and the
// engine trigger. Windows are independent; categories within a window are
// resolved concurrently under a bound.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/processor"
	"github.com/georgisalene/gnss-rt/internal/registry"
	"github.com/georgisalene/gnss-rt/internal/resolver"
	"github.com/georgisalene/gnss-rt/internal/tracker"
)

// Outcome classifies what one pass did with one window.
type Outcome string

const (
	// OutcomeCompleted means the engine ran and succeeded.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means the engine ran and failed; the run is failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeAwaitingProducts means mandatory categories are still
	// unresolved; the run stays acquiring for a later pass.
	OutcomeAwaitingProducts Outcome = "awaiting_products"
	// OutcomeSkipped means another worker owns the run or it is already
	// terminal.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeError means this pass hit an operational error.
	OutcomeError Outcome = "error"
)

// WindowResult is the per-window record of one pipeline pass.
type WindowResult struct {
	SessionID string
	Window    entity.ProcessingWindow
	Outcome   Outcome
	// Missing lists unresolved mandatory categories for awaiting windows.
	Missing []entity.ProductCategory
	Err     error
}

// Summary aggregates a pass over a set of windows.
type Summary struct {
	Results []WindowResult
}

func (s *Summary) count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// ExitCode maps the pass outcome onto the process exit contract: 0 all
// done, 3 products still missing, 4 engine failure, 1 operational error.
func (s *Summary) ExitCode() int {
	switch {
	case s.count(OutcomeError) > 0:
		return 1
	case s.count(OutcomeFailed) > 0:
		return 4
	case s.count(OutcomeAwaitingProducts) > 0:
		return 3
	default:
		return 0
	}
}

// Pipeline wires the tracker, resolver and registry into window passes.
type Pipeline struct {
	tracker  *tracker.Tracker
	resolver *resolver.Resolver
	registry *registry.Registry
	cfg      *config.PipelineConfig
	logger   ports.Logger
	metrics  ports.Metrics
}

func New(
	tr *tracker.Tracker,
	res *resolver.Resolver,
	reg *registry.Registry,
	cfg *config.PipelineConfig,
	logger ports.Logger,
	metrics ports.Metrics,
) *Pipeline {
	return &Pipeline{
		tracker:  tr,
		resolver: res,
		registry: reg,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// ProcessWindows runs one pass over the given windows. Windows proceed
// concurrently up to MaxParallelWindows; a failure in one never aborts the
// others. Results come back in input order.
func (p *Pipeline) ProcessWindows(ctx context.Context, windows []entity.ProcessingWindow) *Summary {
	results := make([]WindowResult, len(windows))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.maxWindows())
	for i, window := range windows {
		wg.Add(1)
		go func(i int, window entity.ProcessingWindow) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.processWindow(ctx, window)
		}(i, window)
	}
	wg.Wait()

	summary := &Summary{Results: results}
	p.logger.Info("Pass finished",
		"windows", len(windows),
		"completed", summary.count(OutcomeCompleted),
		"failed", summary.count(OutcomeFailed),
		"awaiting", summary.count(OutcomeAwaitingProducts),
		"skipped", summary.count(OutcomeSkipped),
		"errors", summary.count(OutcomeError))
	return summary
}

func (p *Pipeline) processWindow(ctx context.Context, window entity.ProcessingWindow) WindowResult {
	result := WindowResult{Window: window, SessionID: window.SessionID()}

	run, err := p.tracker.GetOrCreate(ctx, window)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = err
		return result
	}

	switch run.Status {
	case entity.RunComplete:
		result.Outcome = OutcomeSkipped
		return result
	case entity.RunFailed:
		// Failed runs wait for an explicit reprocess request.
		result.Outcome = OutcomeSkipped
		return result
	case entity.RunRunning:
		result.Outcome = OutcomeSkipped
		return result
	case entity.RunReady:
		// A previous pass stopped between readiness and trigger. The
		// ready -> running guard still holds, so triggering here is safe.
		return p.trigger(ctx, result)
	}

	if err := p.tracker.BeginAcquisition(ctx, run.SessionID); err != nil {
		if errors.Is(err, entity.ErrStateConflict) {
			result.Outcome = OutcomeSkipped
			return result
		}
		result.Outcome = OutcomeError
		result.Err = err
		return result
	}

	if err := p.resolveCategories(ctx, window); err != nil {
		result.Outcome = OutcomeError
		result.Err = err
		return result
	}

	readiness, err := p.tracker.EvaluateReadiness(ctx, run.SessionID)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = err
		return result
	}

	if !readiness.Ready {
		p.metrics.IncrementCounter("pipeline.windows_awaiting", nil)
		result.Outcome = OutcomeAwaitingProducts
		result.Missing = readiness.Missing
		return result
	}
	if !readiness.BecameReady {
		// Another worker won the readiness race and owns the trigger.
		result.Outcome = OutcomeSkipped
		return result
	}

	return p.trigger(ctx, result)
}

// resolveCategories resolves every configured category concurrently under
// the category bound. Unavailable products are not errors here; they show
// up in the readiness evaluation instead.
func (p *Pipeline) resolveCategories(ctx context.Context, window entity.ProcessingWindow) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxCategories())

	for _, category := range p.registry.Categories() {
		category := category
		g.Go(func() error {
			if _, err := p.resolver.Resolve(gctx, window, category); err != nil {
				return fmt.Errorf("resolve %s: %w", category, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) trigger(ctx context.Context, result WindowResult) WindowResult {
	err := p.tracker.Trigger(ctx, result.SessionID)

	var procErr *processor.ProcessingError
	switch {
	case err == nil:
		p.metrics.IncrementCounter("pipeline.windows_completed", nil)
		result.Outcome = OutcomeCompleted
	case errors.As(err, &procErr):
		p.metrics.IncrementCounter("pipeline.windows_failed", nil)
		result.Outcome = OutcomeFailed
		result.Err = err
	case errors.Is(err, entity.ErrStateConflict):
		result.Outcome = OutcomeSkipped
	default:
		result.Outcome = OutcomeError
		result.Err = err
	}
	return result
}

func (p *Pipeline) maxWindows() int {
	if p.cfg != nil && p.cfg.MaxParallelWindows > 0 {
		return p.cfg.MaxParallelWindows
	}
	return 1
}

func (p *Pipeline) maxCategories() int {
	if p.cfg != nil && p.cfg.MaxParallelCategories > 0 {
		return p.cfg.MaxParallelCategories
	}
	return 1
}
