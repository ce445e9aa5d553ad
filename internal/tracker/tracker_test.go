package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/observability"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/processor"
	"github.com/georgisalene/gnss-rt/internal/registry"
	"github.com/georgisalene/gnss-rt/internal/repository"
)

// countingProcessor counts invocations and returns a configurable outcome.
type countingProcessor struct {
	invocations atomic.Int64
	outcome     processor.Outcome
	err         error
}

func (p *countingProcessor) Invoke(ctx context.Context, inv processor.Invocation) (processor.Outcome, error) {
	p.invocations.Add(1)
	return p.outcome, p.err
}

// recordingQueue keeps published messages for inspection.
type recordingQueue struct {
	mu       sync.Mutex
	messages []*ports.QueueMessage
}

func (q *recordingQueue) Publish(ctx context.Context, msg *ports.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

type harness struct {
	tracker   *Tracker
	repos     ports.Repositories
	processor *countingProcessor
	queue     *recordingQueue
	registry  *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reg, err := registry.NewDefault()
	require.NoError(t, err)

	repos := repository.NewMemoryRepositories()
	proc := &countingProcessor{outcome: processor.Outcome{Success: true}}
	queue := &recordingQueue{}

	tr := New(repos, reg, proc, queue, "run.event",
		observability.NewLogger(), observability.NewStdoutMetrics())
	return &harness{tracker: tr, repos: repos, processor: proc, queue: queue, registry: reg}
}

func hourWindow() entity.ProcessingWindow {
	start := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	return entity.ProcessingWindow{
		Type:  entity.WindowHourly,
		Start: start,
		End:   start.Add(time.Hour),
	}
}

// fillMandatory resolves every mandatory category as available.
func (h *harness) fillMandatory(t *testing.T, ctx context.Context, sessionID string) {
	t.Helper()
	source := entity.ProductSource{
		Provider: "CDDIS",
		Tier:     entity.TierFinal,
		Protocol: "https",
		Host:     "cddis.nasa.gov",
	}
	for i, cat := range h.registry.MandatoryCategories() {
		p := entity.NewProduct(sessionID, cat, true)
		path := fmt.Sprintf("/data/%s/%s/file%d", sessionID, cat, i)
		require.NoError(t, p.MarkAvailable(source, path, 1024, "abc"))
		require.NoError(t, h.tracker.RecordProduct(ctx, p))
	}
}

func (h *harness) readyRun(t *testing.T, ctx context.Context) *entity.ProcessingRun {
	t.Helper()
	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
	h.fillMandatory(t, ctx, run.SessionID)

	readiness, err := h.tracker.EvaluateReadiness(ctx, run.SessionID)
	require.NoError(t, err)
	require.True(t, readiness.BecameReady)
	return run
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	second, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, entity.RunPending, second.Status)
}

func TestBeginAcquisitionToleratesConcurrentStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)

	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
	// Second call finds the run already acquiring and succeeds quietly.
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
}

func TestEvaluateReadinessReportsMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))

	// Only orbit resolved; clock and erp still missing.
	source := entity.ProductSource{Provider: "CDDIS", Tier: entity.TierFinal, Protocol: "https", Host: "cddis.nasa.gov"}
	p := entity.NewProduct(run.SessionID, entity.CategoryOrbit, true)
	require.NoError(t, p.MarkAvailable(source, "/data/orbit.sp3", 10, ""))
	require.NoError(t, h.tracker.RecordProduct(ctx, p))

	readiness, err := h.tracker.EvaluateReadiness(ctx, run.SessionID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.False(t, readiness.BecameReady)
	assert.Contains(t, readiness.Missing, entity.CategoryClock)
	assert.Contains(t, readiness.Missing, entity.CategoryERP)
	assert.NotContains(t, readiness.Missing, entity.CategoryOrbit)

	// Not ready means no trigger happened.
	assert.EqualValues(t, 0, h.processor.invocations.Load())

	got, err := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunAcquiring, got.Status)
}

func TestUnavailableMandatoryBlocksReadiness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
	h.fillMandatory(t, ctx, run.SessionID)

	// Exhausted orbit overrides the earlier available row.
	p := entity.NewProduct(run.SessionID, entity.CategoryOrbit, true)
	require.NoError(t, p.MarkUnavailable())
	require.NoError(t, h.tracker.RecordProduct(ctx, p))

	readiness, err := h.tracker.EvaluateReadiness(ctx, run.SessionID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, []entity.ProductCategory{entity.CategoryOrbit}, readiness.Missing)
}

func TestRecordProductRejectsPending(t *testing.T) {
	h := newHarness(t)

	p := entity.NewProduct("24002CH", entity.CategoryOrbit, true)
	err := h.tracker.RecordProduct(context.Background(), p)
	assert.Error(t, err)
}

func TestConcurrentEvaluationsTriggerExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
	h.fillMandatory(t, ctx, run.SessionID)

	const workers = 32
	var wg sync.WaitGroup
	var winners atomic.Int64
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			readiness, err := h.tracker.EvaluateReadiness(ctx, run.SessionID)
			if err != nil {
				return
			}
			if readiness.BecameReady {
				winners.Add(1)
				if err := h.tracker.Trigger(ctx, run.SessionID); err != nil {
					t.Errorf("winner trigger failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
	assert.EqualValues(t, 1, h.processor.invocations.Load())

	got, err := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunComplete, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestDoubleTriggerIsRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := h.readyRun(t, ctx)
	require.NoError(t, h.tracker.Trigger(ctx, run.SessionID))

	err := h.tracker.Trigger(ctx, run.SessionID)
	assert.ErrorIs(t, err, entity.ErrStateConflict)
	assert.EqualValues(t, 1, h.processor.invocations.Load())
}

func TestTriggerCompletesRunAndPublishesEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := h.readyRun(t, ctx)
	require.NoError(t, h.tracker.Trigger(ctx, run.SessionID))

	got, err := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunComplete, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.FailureReason)

	require.Equal(t, 1, h.queue.count())
	msg := h.queue.messages[0]
	assert.Equal(t, "run.event", msg.Target)
	event, ok := msg.Body.(RunEvent)
	require.True(t, ok)
	assert.Equal(t, run.SessionID, event.SessionID)
	assert.Equal(t, entity.RunComplete, event.Status)
	assert.Contains(t, event.Artifacts, entity.CategoryOrbit)
}

func TestTriggerRecordsEngineFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.processor.outcome = processor.Outcome{
		Success:     false,
		Diagnostics: "ambiguity resolution diverged",
		ExitCode:    2,
	}

	run := h.readyRun(t, ctx)
	err := h.tracker.Trigger(ctx, run.SessionID)

	var procErr *processor.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 2, procErr.Outcome.ExitCode)

	got, getErr := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.RunFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "diverged")
}

func TestTriggerFailsRunWhenEngineCannotStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.processor.err = errors.New("binary not found")

	run := h.readyRun(t, ctx)
	err := h.tracker.Trigger(ctx, run.SessionID)

	var procErr *processor.ProcessingError
	require.ErrorAs(t, err, &procErr)

	got, getErr := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.RunFailed, got.Status)
}

func TestReprocessResetsFailedRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.processor.outcome = processor.Outcome{Success: false, Diagnostics: "bad", ExitCode: 1}

	run := h.readyRun(t, ctx)
	_ = h.tracker.Trigger(ctx, run.SessionID)

	require.NoError(t, h.tracker.Reprocess(ctx, run.SessionID))

	got, err := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunPending, got.Status)
	assert.Nil(t, got.FailureReason)
	// Attempt history survives the reset.
	assert.Equal(t, 1, got.AttemptCount)

	// The run goes around again and succeeds this time.
	h.processor.outcome = processor.Outcome{Success: true}
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))
	readiness, err := h.tracker.EvaluateReadiness(ctx, run.SessionID)
	require.NoError(t, err)
	require.True(t, readiness.BecameReady)
	require.NoError(t, h.tracker.Trigger(ctx, run.SessionID))

	got, err = h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunComplete, got.Status)
	assert.Equal(t, 2, got.AttemptCount)
}

func TestReprocessRejectsNonFailedRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)

	err = h.tracker.Reprocess(ctx, run.SessionID)
	assert.ErrorIs(t, err, entity.ErrStateConflict)
}

func TestFailAcquisitionPublishesTerminalEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.tracker.GetOrCreate(ctx, hourWindow())
	require.NoError(t, err)
	require.NoError(t, h.tracker.BeginAcquisition(ctx, run.SessionID))

	require.NoError(t, h.tracker.FailAcquisition(ctx, run.SessionID, "mandatory orbit exhausted"))

	got, err := h.repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "mandatory orbit exhausted", *got.FailureReason)
	assert.Equal(t, 1, h.queue.count())
}
