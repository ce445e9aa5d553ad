package repository

import (
	"fmt"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

type Repositories struct {
	runs     ports.ProcessingRunRepository
	products ports.ProductRepository
	attempts ports.DownloadAttemptRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db ports.Database, obs ports.Observability) (*Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	return &Repositories{
		runs:     newProcessingRunRepository(db, logger, metrics),
		products: newProductRepository(db, logger, metrics),
		attempts: newDownloadAttemptRepository(db, logger, metrics),
	}, nil
}

func (r *Repositories) Runs() ports.ProcessingRunRepository {
	return r.runs
}

func (r *Repositories) Products() ports.ProductRepository {
	return r.products
}

func (r *Repositories) Attempts() ports.DownloadAttemptRepository {
	return r.attempts
}
