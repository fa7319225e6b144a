package core

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry is an enum-keyed registry of provider adapters. Dispatch
// happens by ProviderKind; no runtime type inspection.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderKind]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[ProviderKind]Provider)}
}

func (r *ProviderRegistry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("core: provider is nil")
	}
	kind, err := ParseProviderKind(string(provider.Kind()))
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[kind]; exists {
		return fmt.Errorf("core: provider already registered: %s", kind)
	}
	r.providers[kind] = provider
	return nil
}

func (r *ProviderRegistry) Get(kind ProviderKind) (Provider, bool) {
	r.mu.RLock()
	provider, ok := r.providers[kind]
	r.mu.RUnlock()
	return provider, ok
}

func (r *ProviderRegistry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.providers))
	for kind := range r.providers {
		keys = append(keys, string(kind))
	}
	sort.Strings(keys)
	providers := make([]Provider, 0, len(keys))
	for _, key := range keys {
		providers = append(providers, r.providers[ProviderKind(key)])
	}
	return providers
}

var _ Registry = (*ProviderRegistry)(nil)
