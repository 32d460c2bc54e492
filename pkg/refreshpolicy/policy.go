// Package refreshpolicy implements the Refresh Policy component: the
// decision of when a registered reference should be refreshed, plus two
// canonical strategies (Polling, EventDriven).
package refreshpolicy

import (
	"context"

	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretcache"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// Policy decides when a reference should be refreshed and can drive a
// background worker that does so. Apply must be called (by the Resolver
// Aggregate, at construction) before RegisterSecret/Start are meaningful.
type Policy interface {
	// Apply binds the policy to the provider and cache it drives. Must be
	// idempotent: calling it more than once with the same arguments has no
	// additional effect.
	Apply(p provider.Provider, cache *secretcache.Cache)

	// IsRefreshNeeded is a cheap predicate consulted when deciding whether
	// to honor a cache hit. The canonical rule is true iff cachedSecret is
	// nil or cache.IsStale(ref); strategies may add signals.
	IsRefreshNeeded(ref reference.SecretReference, cachedSecret *secretval.Secret) bool

	// TriggerRefresh requests an out-of-band refresh for a registered
	// reference. Emits SecretRefreshRequested, then fetches and updates the
	// cache; errors are logged, never returned to the caller.
	TriggerRefresh(ctx context.Context, ref reference.SecretReference)

	// RegisterSecret/UnregisterSecret manage the policy's private
	// reference -> credential bookkeeping for references it drives.
	RegisterSecret(ref reference.SecretReference, cred credential.AccessCredential)
	UnregisterSecret(ref reference.SecretReference)

	// Start/Stop/IsRunning control the policy's background worker, if any.
	// Start must be idempotent. Stop must not return until background work
	// has ceased.
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}
