package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/observability"
)

func testInvocation() Invocation {
	start := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	window := entity.ProcessingWindow{Type: entity.WindowHourly, Start: start, End: start.Add(time.Hour)}
	return Invocation{
		SessionID: window.SessionID(),
		Window:    window,
		Products: map[entity.ProductCategory]string{
			entity.CategoryOrbit: "/data/products/24002CH/orbit/orbit.sp3",
			entity.CategoryClock: "/data/products/24002CH/clock/clock.clk",
		},
	}
}

func newExec(cfg config.ProcessorConfig) Processor {
	return NewExec(&cfg, observability.NewLogger(), observability.NewStdoutMetrics())
}

func TestExecArgumentContract(t *testing.T) {
	p := &execProcessor{cfg: &config.ProcessorConfig{
		Args:     []string{"--mode", "rt"},
		Stations: []string{"ONSA", "WTZR"},
	}}

	args := p.buildArgs(testInvocation())

	assert.Equal(t, []string{
		"--mode", "rt",
		"--session", "24002CH",
		"--window-start", "2024-01-02T02:00:00Z",
		"--window-end", "2024-01-02T03:00:00Z",
		"--station", "ONSA",
		"--station", "WTZR",
		"--product", "clock=/data/products/24002CH/clock/clock.clk",
		"--product", "orbit=/data/products/24002CH/orbit/orbit.sp3",
	}, args)
}

func TestExecSuccess(t *testing.T) {
	p := newExec(config.ProcessorConfig{Command: "true", Timeout: 10 * time.Second})

	outcome, err := p.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestExecFailureCapturesExitCode(t *testing.T) {
	p := newExec(config.ProcessorConfig{Command: "false", Timeout: 10 * time.Second})

	outcome, err := p.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, 1, outcome.ExitCode)
}

func TestExecTimeout(t *testing.T) {
	p := newExec(config.ProcessorConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})

	outcome, err := p.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Diagnostics, "timed out")
}

func TestExecMissingBinary(t *testing.T) {
	p := newExec(config.ProcessorConfig{Command: "/nonexistent/engine", Timeout: time.Second})

	_, err := p.Invoke(context.Background(), testInvocation())
	assert.Error(t, err)
}

func TestExecUnconfigured(t *testing.T) {
	p := newExec(config.ProcessorConfig{Timeout: time.Second})

	_, err := p.Invoke(context.Background(), testInvocation())
	assert.Error(t, err)
}

func TestNoopAlwaysSucceeds(t *testing.T) {
	p := NewNoop(observability.NewLogger())

	outcome, err := p.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}
