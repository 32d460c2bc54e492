// Package secretaccess is the client entry point (spec §4.7): named
// registration of references, credentials, and refresh policies behind a
// single get/refresh/unregister/close surface. Everything else in the
// core — Cache, Provider Registry, Event Bus, Resolver Aggregate, Refresh
// Policy, Refresh Coordinator — is an implementation detail a caller never
// touches directly.
package secretaccess

import (
	"context"
	"sync"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/coordinator"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/registry"
	"github.com/systmms/secretaccess/pkg/resolve"
	"github.com/systmms/secretaccess/pkg/secretcache"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// Facade is the client's only entry point. Construct one with Builder.
type Facade struct {
	registry      *registry.Registry
	cache         *secretcache.Cache
	bus           *eventbus.Bus
	coordinator   *coordinator.Coordinator
	defaultPolicy refreshpolicy.Policy

	mu    sync.Mutex
	names map[string]*resolve.Resolver
}

// Register binds name to ref with cred for the lifetime of this Facade.
// policy is optional; when nil, the Builder's default policy (if any) is
// used. Registering an already-used name raises ConfigurationError.
func (f *Facade) Register(ctx context.Context, name string, ref reference.SecretReference, cred credential.AccessCredential, policy refreshpolicy.Policy) error {
	if name == "" {
		return errs.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if policy == nil {
		policy = f.defaultPolicy
	}

	f.mu.Lock()
	if _, exists := f.names[name]; exists {
		f.mu.Unlock()
		return errs.ConfigurationError{Field: "name", Value: name, Message: "a secret is already registered under this name"}
	}
	f.mu.Unlock()

	r, err := resolve.New(ctx, ref, cred, f.registry, f.cache, f.bus, policy)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.names[name] = r
	f.mu.Unlock()

	f.coordinator.RegisterSecret(ref, cred, policy, r.RefreshSecret)
	return nil
}

// Unregister removes name's registration, stopping its bound policy if it
// owns one. A silent no-op if name is unknown.
func (f *Facade) Unregister(name string) {
	f.mu.Lock()
	r, ok := f.names[name]
	if ok {
		delete(f.names, name)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	f.coordinator.UnregisterSecret(r.Reference())
	_ = r.Stop()
}

// Get resolves name via its bound Resolver Aggregate. Raises
// ConfigurationError if name is unknown (a registration mistake, not an
// access failure), or the original AccessError kind on provider failure.
func (f *Facade) Get(ctx context.Context, name string) (*secretval.Secret, error) {
	r, err := f.resolverFor(name)
	if err != nil {
		return nil, err
	}
	return r.GetSecret(ctx)
}

// GetAsString resolves name, copies its value into a string, and zeroes
// its own private copy of the buffer before returning (spec §4.7, §5 —
// the returned Go string itself remains unzeroable, a documented residual
// risk, see DESIGN.md). It deliberately does not run secretval.Scoped
// against the resolved Secret itself: that Secret is the same instance
// held by the Cache, and the specification forbids zeroing a buffer
// still aliased by a live holder (spec §5) — here, the cache.
func (f *Facade) GetAsString(ctx context.Context, name string) (string, error) {
	secret, err := f.Get(ctx, name)
	if err != nil {
		return "", err
	}
	buf := secret.Value()
	defer func() {
		for i := range buf {
			buf[i] = 0
		}
	}()
	return string(buf), nil
}

// Refresh forces a fetch for name, bypassing any fresh cache entry.
func (f *Facade) Refresh(ctx context.Context, name string) (*secretval.Secret, error) {
	r, err := f.resolverFor(name)
	if err != nil {
		return nil, err
	}
	return r.RefreshSecret(ctx)
}

func (f *Facade) resolverFor(name string) (*resolve.Resolver, error) {
	f.mu.Lock()
	r, ok := f.names[name]
	f.mu.Unlock()
	if !ok {
		return nil, errs.ConfigurationError{Field: "name", Value: name, Message: "no secret registered under this name"}
	}
	return r, nil
}

// Close stops the Refresh Coordinator and every registered Resolver
// Aggregate's bound policy. Best-effort: per-component shutdown errors
// are swallowed, never raised to the caller (spec §4.7, §7).
func (f *Facade) Close() error {
	_ = f.coordinator.Stop()

	f.mu.Lock()
	resolvers := make([]*resolve.Resolver, 0, len(f.names))
	for _, r := range f.names {
		resolvers = append(resolvers, r)
	}
	f.names = make(map[string]*resolve.Resolver)
	f.mu.Unlock()

	for _, r := range resolvers {
		_ = r.Stop()
	}
	return nil
}
