package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

type productRepository struct {
	baseRepository
}

func newProductRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) ports.ProductRepository {
	return &productRepository{
		baseRepository: newBaseRepository(db, logger, metrics, "products"),
	}
}

// Upsert replaces the row for (session, category). Resolution state for a
// category is a single row that converges to its terminal value.
func (r *productRepository) Upsert(ctx context.Context, product *entity.Product) error {
	r.countOp("upsert")
	product.UpdatedAt = time.Now().UTC()

	query := r.qb.
		Insert(r.table).
		Columns("session_id", "category", "availability", "mandatory", "provider",
			"tier", "local_path", "size_bytes", "checksum", "created_at", "updated_at").
		Values(product.SessionID, product.Category, product.Availability, product.Mandatory,
			product.Provider, product.Tier, product.LocalPath, product.SizeBytes,
			product.Checksum, product.CreatedAt, product.UpdatedAt).
		Suffix(`ON CONFLICT (session_id, category) DO UPDATE SET
			availability = EXCLUDED.availability,
			provider = EXCLUDED.provider,
			tier = EXCLUDED.tier,
			local_path = EXCLUDED.local_path,
			size_bytes = EXCLUDED.size_bytes,
			checksum = EXCLUDED.checksum,
			updated_at = EXCLUDED.updated_at`)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.Execute(ctx, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to upsert product",
			"error", err, "session_id", product.SessionID, "category", product.Category)
		r.countError("upsert")
		return fmt.Errorf("upsert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(ctx context.Context, sessionID string, category entity.ProductCategory) (*entity.Product, error) {
	var product entity.Product
	r.countOp("get")

	query := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"session_id": sessionID, "category": category})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	err = r.db.Get(ctx, &product, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get product",
			"error", err, "session_id", sessionID, "category", category)
		r.countError("get")
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &product, nil
}

func (r *productRepository) ListBySession(ctx context.Context, sessionID string) ([]*entity.Product, error) {
	r.countOp("list_by_session")

	query := r.qb.
		Select("*").
		From(r.table).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("category ASC")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*entity.Product
	if err := r.db.Select(ctx, &products, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to list products", "error", err, "session_id", sessionID)
		r.countError("list_by_session")
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}
