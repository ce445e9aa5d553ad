package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// MemoryRepositories is an in-memory ports.Repositories implementation with
// the same compare-and-set semantics as the PostgreSQL one. It backs tests
// and database-free dry runs.
type MemoryRepositories struct {
	runs     *memoryRunRepository
	products *memoryProductRepository
	attempts *memoryAttemptRepository
}

func NewMemoryRepositories() *MemoryRepositories {
	return &MemoryRepositories{
		runs:     &memoryRunRepository{runs: make(map[string]*entity.ProcessingRun)},
		products: &memoryProductRepository{products: make(map[string]map[entity.ProductCategory]*entity.Product)},
		attempts: &memoryAttemptRepository{},
	}
}

func (r *MemoryRepositories) Runs() ports.ProcessingRunRepository     { return r.runs }
func (r *MemoryRepositories) Products() ports.ProductRepository       { return r.products }
func (r *MemoryRepositories) Attempts() ports.DownloadAttemptRepository { return r.attempts }

type memoryRunRepository struct {
	mu   sync.Mutex
	runs map[string]*entity.ProcessingRun
}

func copyRun(r *entity.ProcessingRun) *entity.ProcessingRun {
	c := *r
	return &c
}

func (m *memoryRunRepository) GetOrCreate(ctx context.Context, window entity.ProcessingWindow) (*entity.ProcessingRun, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := window.SessionID()
	if existing, ok := m.runs[id]; ok {
		return copyRun(existing), false, nil
	}

	run := entity.NewProcessingRun(window)
	m.runs[id] = run
	return copyRun(run), true, nil
}

func (m *memoryRunRepository) Get(ctx context.Context, sessionID string) (*entity.ProcessingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[sessionID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return copyRun(run), nil
}

func (m *memoryRunRepository) CompareAndSetStatus(ctx context.Context, sessionID string, expected, next entity.RunStatus) error {
	if !expected.CanTransitionTo(next) {
		return entity.ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	if run.Status != expected {
		return ports.ErrStaleStatus
	}
	run.Status = next
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryRunRepository) MarkRunning(ctx context.Context, sessionID string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	if run.Status != entity.RunReady {
		return ports.ErrStaleStatus
	}
	ts := startedAt.UTC()
	run.Status = entity.RunRunning
	run.StartedAt = &ts
	run.AttemptCount++
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryRunRepository) Finish(ctx context.Context, sessionID string, expected, terminal entity.RunStatus, failureReason string) error {
	if !terminal.Terminal() || !expected.CanTransitionTo(terminal) {
		return entity.ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	if run.Status != expected {
		return ports.ErrStaleStatus
	}
	now := time.Now().UTC()
	run.Status = terminal
	run.CompletedAt = &now
	run.UpdatedAt = now
	if failureReason != "" {
		reason := failureReason
		run.FailureReason = &reason
	}
	return nil
}

func (m *memoryRunRepository) Reprocess(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	if run.Status != entity.RunFailed {
		return ports.ErrStaleStatus
	}
	run.Status = entity.RunPending
	run.StartedAt = nil
	run.CompletedAt = nil
	run.FailureReason = nil
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryRunRepository) ListByStatus(ctx context.Context, status entity.RunStatus, limit int) ([]*entity.ProcessingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.ProcessingRun
	for _, run := range m.runs {
		if run.Status == status {
			out = append(out, copyRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryProductRepository struct {
	mu       sync.Mutex
	products map[string]map[entity.ProductCategory]*entity.Product
}

func copyProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}

func (m *memoryProductRepository) Upsert(ctx context.Context, product *entity.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCat, ok := m.products[product.SessionID]
	if !ok {
		byCat = make(map[entity.ProductCategory]*entity.Product)
		m.products[product.SessionID] = byCat
	}
	byCat[product.Category] = copyProduct(product)
	return nil
}

func (m *memoryProductRepository) Get(ctx context.Context, sessionID string, category entity.ProductCategory) (*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.products[sessionID][category]; ok {
		return copyProduct(p), nil
	}
	return nil, ports.ErrNotFound
}

func (m *memoryProductRepository) ListBySession(ctx context.Context, sessionID string) ([]*entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Product
	for _, p := range m.products[sessionID] {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

type memoryAttemptRepository struct {
	mu       sync.Mutex
	attempts []*entity.DownloadAttempt
}

func (m *memoryAttemptRepository) Append(ctx context.Context, attempt *entity.DownloadAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *attempt
	m.attempts = append(m.attempts, &c)
	return nil
}

func (m *memoryAttemptRepository) ListBySession(ctx context.Context, sessionID string) ([]*entity.DownloadAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.DownloadAttempt
	for _, a := range m.attempts {
		if a.SessionID == sessionID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}
