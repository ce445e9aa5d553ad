// Package registry holds the ordered product source configuration: which
// providers serve each product category, at which tiers, over which
// protocols. The registry is read-only after load; the resolver consumes it
// as plain data.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

// CategoryConfig is the per-category slice of the registry.
type CategoryConfig struct {
	// Mandatory marks the category as required for run readiness.
	Mandatory bool `mapstructure:"mandatory"`
	// Sources in preference order within a tier; tiers are ordered
	// final > rapid > ultra > predicted regardless of file order.
	Sources []entity.ProductSource `mapstructure:"sources"`
}

// Registry is the validated, ordered source configuration.
type Registry struct {
	categories map[entity.ProductCategory]CategoryConfig
}

// NewDefault builds the registry from the built-in provider defaults.
func NewDefault() (*Registry, error) {
	return newRegistry(defaultCategories())
}

// Load reads a YAML registry file and merges it over the built-in defaults.
// A category present in the file replaces the default entry for that
// category wholesale.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewDefault()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, entity.NewConfigError("registry: cannot read %s: %v", path, err)
	}

	var file struct {
		Categories map[string]CategoryConfig `mapstructure:"categories"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, entity.NewConfigError("registry: cannot parse %s: %v", path, err)
	}

	merged := defaultCategories()
	for name, cfg := range file.Categories {
		cat, err := entity.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		merged[cat] = cfg
	}

	return newRegistry(merged)
}

func newRegistry(categories map[entity.ProductCategory]CategoryConfig) (*Registry, error) {
	for cat, cfg := range categories {
		if len(cfg.Sources) == 0 {
			return nil, entity.NewConfigError("registry: category %s has no sources", cat)
		}
		for _, src := range cfg.Sources {
			if err := src.Validate(); err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}
		}
	}
	return &Registry{categories: categories}, nil
}

// Sources returns the sources for a category ordered by tier preference,
// stable within a tier. The returned slice is a copy.
func (r *Registry) Sources(category entity.ProductCategory) ([]entity.ProductSource, error) {
	cfg, ok := r.categories[category]
	if !ok {
		return nil, entity.NewConfigError("registry: unknown category %q", category)
	}

	out := make([]entity.ProductSource, len(cfg.Sources))
	copy(out, cfg.Sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier.Rank() < out[j].Tier.Rank()
	})
	return out, nil
}

// FilterSources narrows a source slice to one provider and/or tier. An empty
// provider or tier matches everything; providers compare case-insensitively.
// Order is preserved.
func FilterSources(sources []entity.ProductSource, provider string, tier entity.ProductTier) []entity.ProductSource {
	var out []entity.ProductSource
	for _, src := range sources {
		if provider != "" && !strings.EqualFold(src.Provider, provider) {
			continue
		}
		if tier != "" && src.Tier != tier {
			continue
		}
		out = append(out, src)
	}
	return out
}

// Mandatory reports whether the category must resolve for a run to be ready.
func (r *Registry) Mandatory(category entity.ProductCategory) bool {
	return r.categories[category].Mandatory
}

// Categories returns the configured categories in the canonical order.
func (r *Registry) Categories() []entity.ProductCategory {
	var out []entity.ProductCategory
	for _, c := range entity.Categories() {
		if _, ok := r.categories[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// MandatoryCategories returns the categories required for readiness.
func (r *Registry) MandatoryCategories() []entity.ProductCategory {
	var out []entity.ProductCategory
	for _, c := range r.Categories() {
		if r.Mandatory(c) {
			out = append(out, c)
		}
	}
	return out
}
