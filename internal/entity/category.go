package entity

import "fmt"

// ProductCategory identifies a class of correction product consumed by the
// processing engine.
type ProductCategory string

const (
	CategoryOrbit      ProductCategory = "orbit"
	CategoryClock      ProductCategory = "clock"
	CategoryERP        ProductCategory = "erp"
	CategoryBias       ProductCategory = "bias"
	CategoryIonosphere ProductCategory = "ionosphere"
	CategoryDCB        ProductCategory = "dcb"
)

// Categories returns all known product categories in a stable order.
func Categories() []ProductCategory {
	return []ProductCategory{
		CategoryOrbit,
		CategoryClock,
		CategoryERP,
		CategoryBias,
		CategoryIonosphere,
		CategoryDCB,
	}
}

// ParseCategory validates a category string.
func ParseCategory(s string) (ProductCategory, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", NewConfigError("unknown product category %q", s)
}

// ProductTier is the quality/latency class of a product. Lower rank means
// higher quality (and higher latency).
type ProductTier string

const (
	TierFinal     ProductTier = "final"
	TierRapid     ProductTier = "rapid"
	TierUltra     ProductTier = "ultra"
	TierPredicted ProductTier = "predicted"
)

// Rank orders tiers by preference: final first, predicted last.
func (t ProductTier) Rank() int {
	switch t {
	case TierFinal:
		return 0
	case TierRapid:
		return 1
	case TierUltra:
		return 2
	case TierPredicted:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the tier is one of the known classes.
func (t ProductTier) Valid() bool {
	return t.Rank() < 4
}

// ParseTier validates a tier string.
func ParseTier(s string) (ProductTier, error) {
	t := ProductTier(s)
	if !t.Valid() {
		return "", NewConfigError("unknown product tier %q", s)
	}
	return t, nil
}

func (t ProductTier) String() string { return string(t) }

func (c ProductCategory) String() string { return string(c) }

// ProductSource describes one place a category can be fetched from. Sources
// are read-only configuration; the resolver tries them strictly in the order
// the registry yields them.
type ProductSource struct {
	Provider     string      `mapstructure:"provider"`
	Tier         ProductTier `mapstructure:"tier"`
	Protocol     string      `mapstructure:"protocol"`
	Host         string      `mapstructure:"host"`
	Username     string      `mapstructure:"username"`
	Password     string      `mapstructure:"password"`
	PathTemplate string      `mapstructure:"path"`
}

// Validate checks the source is complete enough to dial.
func (s ProductSource) Validate() error {
	if s.Provider == "" {
		return NewConfigError("product source missing provider")
	}
	if !s.Tier.Valid() {
		return NewConfigError("product source %s: invalid tier %q", s.Provider, s.Tier)
	}
	switch s.Protocol {
	case "https", "http", "ftp", "sftp":
	default:
		return NewConfigError("product source %s: unsupported protocol %q", s.Provider, s.Protocol)
	}
	if s.Host == "" {
		return NewConfigError("product source %s: missing host", s.Provider)
	}
	if s.PathTemplate == "" {
		return NewConfigError("product source %s: missing path template", s.Provider)
	}
	return nil
}

// Label is a short human-readable identity used in logs and attempt records.
func (s ProductSource) Label() string {
	return fmt.Sprintf("%s/%s", s.Provider, s.Tier)
}
