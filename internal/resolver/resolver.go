package resolver

import (
	"context"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/registry"
)

// Resolver turns a (window, category) pair into a terminal Product by
// walking the registry's ordered sources through the Downloader.
type Resolver struct {
	registry   *registry.Registry
	downloader *Downloader
	products   ports.ProductRepository
	logger     ports.Logger
	metrics    ports.Metrics
}

func NewResolver(
	reg *registry.Registry,
	downloader *Downloader,
	products ports.ProductRepository,
	logger ports.Logger,
	metrics ports.Metrics,
) *Resolver {
	return &Resolver{
		registry:   reg,
		downloader: downloader,
		products:   products,
		logger:     logger,
		metrics:    metrics,
	}
}

// Resolve acquires one category for a window. Sources are tried strictly in
// tier order; the first success wins and later tiers are never touched. When
// every source is exhausted the product is marked unavailable, which is a
// terminal state for this resolution pass.
func (r *Resolver) Resolve(ctx context.Context, window entity.ProcessingWindow, category entity.ProductCategory) (*entity.Product, error) {
	sessionID := window.SessionID()

	// An earlier pass may already have resolved this category.
	if existing, err := r.products.Get(ctx, sessionID, category); err == nil && existing.Availability.Terminal() {
		if existing.IsAvailable() {
			return existing, nil
		}
		// Unavailable from a previous pass: products appear upstream over
		// time, so try again.
	}

	product := entity.NewProduct(sessionID, category, r.registry.Mandatory(category))
	if err := r.products.Upsert(ctx, product); err != nil {
		return nil, err
	}

	sources, err := r.registry.Sources(category)
	if err != nil {
		return nil, err
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		dl, err := r.downloader.Fetch(ctx, sessionID, category, source, window.Start)
		if err != nil {
			r.logger.Info("Source exhausted, trying next",
				"session_id", sessionID,
				"category", category,
				"source", source.Label(),
				"error", err)
			continue
		}

		if err := product.MarkAvailable(dl.Source, dl.LocalPath, dl.Size, dl.Checksum); err != nil {
			return nil, err
		}
		if err := r.products.Upsert(ctx, product); err != nil {
			return nil, err
		}

		r.metrics.IncrementCounter("resolver.resolved", map[string]string{
			"category": string(category),
			"tier":     string(dl.Source.Tier),
		})
		return product, nil
	}

	if err := product.MarkUnavailable(); err != nil {
		return nil, err
	}
	if err := r.products.Upsert(ctx, product); err != nil {
		return nil, err
	}

	r.logger.Error("All sources exhausted for category",
		"session_id", sessionID,
		"category", category,
		"sources", len(sources))
	r.metrics.IncrementCounter("resolver.exhausted", map[string]string{"category": string(category)})

	return product, nil
}
