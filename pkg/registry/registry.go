// Package registry implements the Provider Registry component: an
// append-only, insertion-ordered list of providers, routing a store type
// to the first registered provider that advertises support.
package registry

import (
	"sync"

	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
)

// Registry is safe for concurrent use. Registration is append-only; a
// provider instance's lifetime is the process's, so there is no
// deregistration operation.
type Registry struct {
	mu        sync.RWMutex
	providers []provider.Provider
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register appends p to the registration list.
func (r *Registry) Register(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// FindFor returns the first registered provider whose SupportsStore(storeType)
// is true, and true. Returns nil, false if none match.
func (r *Registry) FindFor(storeType reference.StoreType) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.SupportsStore(storeType) {
			return p, true
		}
	}
	return nil, false
}
