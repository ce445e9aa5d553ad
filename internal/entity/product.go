package entity

import "time"

// ProductAvailability is the resolution state of one category for one run.
type ProductAvailability string

const (
	ProductPending     ProductAvailability = "pending"
	ProductAvailable   ProductAvailability = "available"
	ProductUnavailable ProductAvailability = "unavailable"
)

// Terminal reports whether resolution for this category has finished.
func (a ProductAvailability) Terminal() bool {
	return a == ProductAvailable || a == ProductUnavailable
}

// Product tracks the acquisition of one category for one processing run.
// A product starts pending when resolution begins and becomes terminal
// exactly once, when resolution for the category succeeds or exhausts all
// sources.
type Product struct {
	ID           int64               `db:"id"`
	SessionID    string              `db:"session_id"`
	Category     ProductCategory     `db:"category"`
	Availability ProductAvailability `db:"availability"`
	Mandatory    bool                `db:"mandatory"`
	Provider     *string             `db:"provider"`
	Tier         *ProductTier        `db:"tier"`
	LocalPath    *string             `db:"local_path"`
	SizeBytes    *int64              `db:"size_bytes"`
	Checksum     *string             `db:"checksum"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

// NewProduct creates a pending product for a run and category.
func NewProduct(sessionID string, category ProductCategory, mandatory bool) *Product {
	now := time.Now().UTC()
	return &Product{
		SessionID:    sessionID,
		Category:     category,
		Availability: ProductPending,
		Mandatory:    mandatory,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkAvailable records a successful resolution with the source that won and
// the stored artifact handle.
func (p *Product) MarkAvailable(source ProductSource, localPath string, size int64, checksum string) error {
	if p.Availability.Terminal() {
		return ErrProductResolved
	}
	if localPath == "" {
		return ErrEmptyArtifact
	}

	tier := source.Tier
	provider := source.Provider
	p.Availability = ProductAvailable
	p.Provider = &provider
	p.Tier = &tier
	p.LocalPath = &localPath
	p.SizeBytes = &size
	if checksum != "" {
		p.Checksum = &checksum
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkUnavailable records that every configured source was exhausted.
func (p *Product) MarkUnavailable() error {
	if p.Availability.Terminal() {
		return ErrProductResolved
	}
	p.Availability = ProductUnavailable
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IsAvailable reports whether the artifact was acquired.
func (p *Product) IsAvailable() bool {
	return p.Availability == ProductAvailable
}
