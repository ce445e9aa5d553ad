// Package retry implements the bounded exponential backoff policy used for
// download attempts against a single product source.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

// Policy is a bounded exponential backoff schedule. The zero value is not
// usable; construct with explicit fields and Validate.
type Policy struct {
	// MaxAttempts is the total number of attempts per source, including the
	// first one.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Jitter, in [0, 1], randomizes each delay by up to that fraction to
	// avoid synchronized retries across parallel categories.
	Jitter float64
}

// Default mirrors the production acquisition settings: five attempts with a
// thirty second base delay capped at ten minutes.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   30 * time.Second,
		MaxDelay:    10 * time.Minute,
		Jitter:      0.1,
	}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return entity.NewConfigError("retry: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return entity.NewConfigError("retry: base delay must be positive, got %s", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return entity.NewConfigError("retry: max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return entity.NewConfigError("retry: jitter must be in [0,1], got %g", p.Jitter)
	}
	return nil
}

// Delay returns the wait before attempt n+1, where n is the 1-based attempt
// that just failed: BaseDelay doubled per prior failure, capped at MaxDelay.
// Jitter is not applied here so the schedule stays testable.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleep waits the jittered delay for the given failed attempt, returning
// early with ctx.Err() if the context is cancelled.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if p.Jitter > 0 {
		f := 1 + p.Jitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * f)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
