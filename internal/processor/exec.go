package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// execProcessor launches the engine as a subprocess. The invocation contract
// is positional: configured args first, then --session, --window-start,
// --window-end, one --station per configured station filter entry, and one
// --product category=location per available category.
type execProcessor struct {
	cfg     *config.ProcessorConfig
	logger  ports.Logger
	metrics ports.Metrics
}

// NewExec creates the subprocess-backed processor.
func NewExec(cfg *config.ProcessorConfig, logger ports.Logger, metrics ports.Metrics) Processor {
	return &execProcessor{cfg: cfg, logger: logger, metrics: metrics}
}

func (p *execProcessor) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	if p.cfg.Command == "" {
		return Outcome{}, errors.New("processor command not configured")
	}

	args := p.buildArgs(inv)

	runCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.cfg.Command, args...)
	cmd.Dir = p.cfg.WorkDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Info("Invoking processing engine",
		"session_id", inv.SessionID,
		"command", p.cfg.Command,
		"products", len(inv.Products))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	p.metrics.RecordHistogram("processor.duration_ms",
		float64(duration.Milliseconds()), nil)

	if err == nil {
		p.logger.Info("Processing engine completed",
			"session_id", inv.SessionID,
			"duration_ms", duration.Milliseconds())
		p.metrics.IncrementCounter("processor.invocations", map[string]string{"result": "success"})
		return Outcome{Success: true}, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		p.metrics.IncrementCounter("processor.invocations", map[string]string{"result": "timeout"})
		return Outcome{
			Success:     false,
			Diagnostics: fmt.Sprintf("engine timed out after %s", p.cfg.Timeout),
			ExitCode:    -1,
		}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.logger.Error("Processing engine failed",
			"session_id", inv.SessionID,
			"exit_code", exitErr.ExitCode(),
			"stderr", stderr.String())
		p.metrics.IncrementCounter("processor.invocations", map[string]string{"result": "failed"})
		return Outcome{
			Success:     false,
			Diagnostics: stderr.String(),
			ExitCode:    exitErr.ExitCode(),
		}, nil
	}

	// The engine never started.
	p.metrics.IncrementCounter("processor.invocations", map[string]string{"result": "error"})
	return Outcome{}, fmt.Errorf("failed to run engine: %w", err)
}

func (p *execProcessor) buildArgs(inv Invocation) []string {
	args := append([]string{}, p.cfg.Args...)
	args = append(args,
		"--session", inv.SessionID,
		"--window-start", inv.Window.Start.UTC().Format(time.RFC3339),
		"--window-end", inv.Window.End.UTC().Format(time.RFC3339),
	)
	for _, station := range p.cfg.Stations {
		args = append(args, "--station", station)
	}
	for _, cat := range sortedCategories(inv.Products) {
		args = append(args, "--product", fmt.Sprintf("%s=%s", cat, inv.Products[cat]))
	}
	return args
}

func sortedCategories(products map[entity.ProductCategory]string) []entity.ProductCategory {
	out := make([]entity.ProductCategory, 0, len(products))
	for c := range products {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
