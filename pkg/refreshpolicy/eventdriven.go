package refreshpolicy

import (
	"context"
	"sync"

	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretcache"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// Notification is an external change signal naming the reference it
// concerns. Concrete transports (the NATS event sink, a webhook handler)
// translate their own payloads into this shape before handing it to
// EventDriven.Notify.
type Notification struct {
	Ref    reference.SecretReference
	Reason string
}

// EventDriven is the canonical notification-based Refresh Policy (spec
// §4.5): rather than polling on a timer, it exposes Notify, which a
// concrete transport calls when the backing store reports a change.
// There is no background timer; instead Notify sets a "dirty" bit per
// reference — a notified reference is treated as needing refresh until its
// next successful TriggerRefresh clears the bit, satisfying
// IsRefreshNeeded's "subclasses may add signals" allowance (spec §4.5).
type EventDriven struct {
	bus *eventbus.Bus
	log logging.Logger

	mu      sync.Mutex
	prov    provider.Provider
	cache   *secretcache.Cache
	secrets map[string]credential.AccessCredential
	dirty   map[string]bool
	applied bool
	running bool
}

// EventDrivenOption configures an EventDriven policy at construction.
type EventDrivenOption func(*EventDriven)

// WithEventDrivenBus installs the event bus TriggerRefresh publishes to.
func WithEventDrivenBus(bus *eventbus.Bus) EventDrivenOption {
	return func(e *EventDriven) { e.bus = bus }
}

// WithEventDrivenLogger overrides the logger used to report failures.
func WithEventDrivenLogger(l logging.Logger) EventDrivenOption {
	return func(e *EventDriven) { e.log = l }
}

// NewEventDriven constructs an EventDriven policy with no registered
// references and no dirty bits set.
func NewEventDriven(opts ...EventDrivenOption) *EventDriven {
	e := &EventDriven{
		log:     logging.NopLogger{},
		secrets: make(map[string]credential.AccessCredential),
		dirty:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply implements refreshpolicy.Policy. Idempotent.
func (e *EventDriven) Apply(prov provider.Provider, cache *secretcache.Cache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied {
		return
	}
	e.prov = prov
	e.cache = cache
	e.applied = true
}

// IsRefreshNeeded implements refreshpolicy.Policy: the canonical
// absent-or-stale rule, plus the dirty bit a Notify call sets.
func (e *EventDriven) IsRefreshNeeded(ref reference.SecretReference, cachedSecret *secretval.Secret) bool {
	if cachedSecret == nil || e.cache.IsStale(ref) {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty[ref.String()]
}

// RegisterSecret implements refreshpolicy.Policy.
func (e *EventDriven) RegisterSecret(ref reference.SecretReference, cred credential.AccessCredential) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.secrets[ref.String()] = cred
}

// UnregisterSecret implements refreshpolicy.Policy.
func (e *EventDriven) UnregisterSecret(ref reference.SecretReference) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.secrets, ref.String())
	delete(e.dirty, ref.String())
}

// Notify is the entry point a concrete notification transport calls when
// the backing store reports ref may have changed. It marks ref dirty and
// immediately triggers a refresh — supportsChangeNotifications adapters
// are expected to call this from their own subscription loop.
func (e *EventDriven) Notify(ctx context.Context, n Notification) {
	e.mu.Lock()
	e.dirty[n.Ref.String()] = true
	e.mu.Unlock()
	e.TriggerRefresh(ctx, n.Ref)
}

// TriggerRefresh implements refreshpolicy.Policy: publishes
// SecretRefreshRequested, fetches, updates the cache, clears the dirty
// bit on success. Errors are logged, never returned.
func (e *EventDriven) TriggerRefresh(ctx context.Context, ref reference.SecretReference) {
	e.mu.Lock()
	cred, ok := e.secrets[ref.String()]
	prov, cache, bus := e.prov, e.cache, e.bus
	e.mu.Unlock()
	if !ok {
		e.log.Warn("eventdriven: triggerRefresh for unregistered reference", "ref", ref)
		return
	}

	if bus != nil {
		bus.Publish(eventbus.NewSecretRefreshRequested(ref, "external-notification"))
	}

	secret, err := prov.FetchSecret(ctx, ref, cred)
	if err != nil {
		e.log.Error("eventdriven: refresh failed", "ref", ref, "err", err)
		return
	}
	cache.Put(secret)

	e.mu.Lock()
	delete(e.dirty, ref.String())
	e.mu.Unlock()

	if bus != nil {
		bus.Publish(eventbus.NewSecretRefreshed(ref, secret.Metadata().Version(), true))
	}
}

// Start implements refreshpolicy.Policy. EventDriven has no background
// timer of its own — it is driven entirely by Notify calls from an
// external transport — so Start only flips the running flag idempotently.
func (e *EventDriven) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	return nil
}

// Stop implements refreshpolicy.Policy. Returns immediately: there is no
// background goroutine to wait on.
func (e *EventDriven) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	return nil
}

// IsRunning implements refreshpolicy.Policy.
func (e *EventDriven) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

var _ Policy = (*EventDriven)(nil)
