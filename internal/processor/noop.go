package processor

import (
	"context"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// noopProcessor accepts every run without doing work. It backs dry runs and
// deployments where a downstream consumer picks runs up from the queue
// instead of a local engine.
type noopProcessor struct {
	logger ports.Logger
}

// NewNoop creates the accept-everything processor.
func NewNoop(logger ports.Logger) Processor {
	return &noopProcessor{logger: logger}
}

func (p *noopProcessor) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	p.logger.Info("Noop processor accepting run",
		"session_id", inv.SessionID,
		"products", len(inv.Products))
	return Outcome{Success: true}, nil
}
