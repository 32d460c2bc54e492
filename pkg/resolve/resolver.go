// Package resolve implements the Resolver Aggregate: the per-reference
// state machine (spec §4.4) binding one SecretReference to a provider, a
// shared cache, an optional refresh policy, and an event bus publish
// handle. It is the only component in the core with a non-trivial
// concurrency primitive — per the redesign notes in spec §9, at-most-one
// in-flight fetch per reference is enforced with golang.org/x/sync/singleflight,
// the same primitive tailscale/setec's client store uses to coalesce
// concurrent lookups of one secret name.
package resolve

import (
	"bytes"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/registry"
	"github.com/systmms/secretaccess/pkg/secretcache"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// Resolver owns one SecretReference's read-through/refresh state machine.
// Safe for concurrent use; GetSecret and RefreshSecret may be called from
// any number of goroutines.
type Resolver struct {
	ref    reference.SecretReference
	cred   credential.AccessCredential
	prov   provider.Provider
	cache  *secretcache.Cache
	bus    *eventbus.Bus
	policy refreshpolicy.Policy

	sf singleflight.Group

	mu            sync.Mutex
	lastRetrieved *secretval.Secret
}

// New constructs a Resolver for ref. It rejects a zero-value ref/cred
// (ValidationError) and fails with ConfigurationError if no provider in
// reg supports ref.StoreType(). If policy is non-nil, it is applied with
// (provider, cache) and started if not already running.
func New(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential, reg *registry.Registry, cache *secretcache.Cache, bus *eventbus.Bus, policy refreshpolicy.Policy) (*Resolver, error) {
	if ref.Name() == "" {
		return nil, errs.ValidationError{Field: "ref", Message: "must not be the zero value"}
	}
	if cred.Method() == "" {
		return nil, errs.ValidationError{Field: "cred", Message: "must not be the zero value"}
	}
	if cache == nil {
		return nil, errs.ValidationError{Field: "cache", Message: "must not be nil"}
	}
	if reg == nil {
		return nil, errs.ValidationError{Field: "registry", Message: "must not be nil"}
	}

	p, ok := reg.FindFor(ref.StoreType())
	if !ok {
		return nil, errs.ConfigurationError{
			Field:   "ref.storeType",
			Value:   ref.StoreType(),
			Message: "no registered provider supports this store type",
		}
	}

	r := &Resolver{ref: ref, cred: cred, prov: p, cache: cache, bus: bus, policy: policy}

	if policy != nil {
		policy.Apply(p, cache)
		policy.RegisterSecret(ref, cred)
		if !policy.IsRunning() {
			if err := policy.Start(ctx); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

// Reference returns the reference this Resolver owns.
func (r *Resolver) Reference() reference.SecretReference { return r.ref }

// GetSecret is the read path: a fresh cache hit is returned directly
// (after updating lastRetrieved for change detection); a miss or stale
// entry delegates to RefreshSecret.
func (r *Resolver) GetSecret(ctx context.Context) (*secretval.Secret, error) {
	secret, ok := r.cache.Get(r.ref)
	if ok && r.policy != nil && r.policy.IsRefreshNeeded(r.ref, secret) {
		ok = false
	}
	if ok {
		r.mu.Lock()
		r.lastRetrieved = secret
		r.mu.Unlock()
		return secret, nil
	}
	return r.RefreshSecret(ctx)
}

// RefreshSecret forces a fetch, coalescing concurrent callers for this
// reference onto a single in-flight provider call (spec §4.4, testable
// property 2). Steps run in the order spec §4.4 specifies: snapshot prior
// lastRetrieved, fetch, store as lastRetrieved, rollover detection against
// the snapshot (never the just-overwritten value — spec §9 Open Question
// 3), cache.Put, publish SecretRefreshed.
func (r *Resolver) RefreshSecret(ctx context.Context) (*secretval.Secret, error) {
	v, err, _ := r.sf.Do(r.ref.String(), func() (interface{}, error) {
		return r.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*secretval.Secret), nil
}

func (r *Resolver) doRefresh(ctx context.Context) (*secretval.Secret, error) {
	r.mu.Lock()
	prior := r.lastRetrieved
	r.mu.Unlock()

	secret, err := r.prov.FetchSecret(ctx, r.ref, r.cred)
	if err != nil {
		return nil, toAccessError(r.ref, err)
	}

	r.mu.Lock()
	r.lastRetrieved = secret
	r.mu.Unlock()

	r.detectRollover(prior, secret)

	r.cache.Put(secret)

	valueChanged := prior == nil || !bytes.Equal(prior.Value(), secret.Value())
	r.publish(eventbus.NewSecretRefreshed(r.ref, secret.Metadata().Version(), valueChanged))

	return secret, nil
}

// detectRollover applies only when r.ref is an "active" version hint
// (spec §4.4). It forms the "inactive" sibling, and — if the sibling is
// cached, a prior secret existed, and its version differs from the fresh
// one — publishes SecretRolloverDetected before the RefreshSecret caller
// publishes SecretRefreshed, satisfying the event ordering in spec §5 and
// testable property 3.
func (r *Resolver) detectRollover(prior, fresh *secretval.Secret) {
	if !r.ref.IsActiveVersion() {
		return
	}
	if prior == nil {
		return
	}
	sibling := r.ref.Sibling(reference.VersionInactive)
	if _, ok := r.cache.Get(sibling); !ok {
		return
	}
	if prior.Metadata().Version() == fresh.Metadata().Version() {
		return
	}
	r.publish(eventbus.NewSecretRolloverDetected(r.ref, sibling, fresh.Metadata().Version()))
}

func (r *Resolver) publish(e eventbus.Event) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(e)
}

func toAccessError(ref reference.SecretReference, err error) error {
	if _, ok := err.(errs.AccessError); ok {
		return err
	}
	return errs.AccessError{Reference: ref, Operation: "fetch", Err: err}
}

// Stop stops the bound refresh policy, if any and if running. No-op when
// there is no policy.
func (r *Resolver) Stop() error {
	if r.policy == nil {
		return nil
	}
	if !r.policy.IsRunning() {
		return nil
	}
	return r.policy.Stop()
}
