package app

import (
	"sort"

	"github.com/levtools/mediagrab/internal/domain"
)

// AdapterRegistry maps (platform, contentType) keys to provider adapters.
// It is built once and never modified afterwards.
type AdapterRegistry struct {
	adapters map[domain.AdapterKey]domain.ProviderAdapter
	keys     []domain.AdapterKey
}

// NewAdapterRegistry creates a registry from the given adapter table
func NewAdapterRegistry(adapters map[domain.AdapterKey]domain.ProviderAdapter) *AdapterRegistry {
	r := &AdapterRegistry{
		adapters: make(map[domain.AdapterKey]domain.ProviderAdapter, len(adapters)),
		keys:     make([]domain.AdapterKey, 0, len(adapters)),
	}
	for key, adapter := range adapters {
		if adapter == nil {
			continue
		}
		r.adapters[key] = adapter
		r.keys = append(r.keys, key)
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if r.keys[i].Platform != r.keys[j].Platform {
			return r.keys[i].Platform < r.keys[j].Platform
		}
		return r.keys[i].ContentType < r.keys[j].ContentType
	})
	return r
}

// Resolve returns the adapter for an exact (platform, contentType) match
func (r *AdapterRegistry) Resolve(platform, contentType string) (domain.ProviderAdapter, error) {
	adapter, ok := r.adapters[domain.AdapterKey{Platform: platform, ContentType: contentType}]
	if !ok {
		return nil, domain.NewNotSupportedError(platform, contentType)
	}
	return adapter, nil
}

// Keys returns the supported keys sorted by platform then content type
func (r *AdapterRegistry) Keys() []domain.AdapterKey {
	out := make([]domain.AdapterKey, len(r.keys))
	copy(out, r.keys)
	return out
}
