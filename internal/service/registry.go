package service

import (
	"sync"

	"omnichat/internal/models"
	"omnichat/pkg/channel"
)

// AdapterRegistry caches one provider client per integration so HTTP
// connection pools are reused across webhook deliveries.
type AdapterRegistry struct {
	mu       sync.Mutex
	factory  AdapterFactory
	adapters map[string]channel.Adapter
}

func NewAdapterRegistry(factory AdapterFactory) *AdapterRegistry {
	return &AdapterRegistry{
		factory:  factory,
		adapters: make(map[string]channel.Adapter),
	}
}

func (r *AdapterRegistry) Get(integration *models.Integration) (channel.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.adapters[integration.ID]; ok {
		return adapter, nil
	}

	adapter, err := r.factory(integration)
	if err != nil {
		return nil, err
	}
	r.adapters[integration.ID] = adapter
	return adapter, nil
}

// Evict drops the cached client, forcing a rebuild on next use. Called when
// an integration's credentials or base URL change, or when it is deleted.
func (r *AdapterRegistry) Evict(integrationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, integrationID)
}
