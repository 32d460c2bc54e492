package refreshpolicy

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretcache"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// stopWait bounds how long Stop waits for the background tick loop to
// notice cancellation before it gives up waiting (spec §5: "wait up to 5
// seconds, then cancels hard").
const stopWait = 5 * time.Second

type registeredSecret struct {
	cred credential.AccessCredential
}

// Polling is the canonical time-based Refresh Policy (spec §4.5): a
// background timer at a fixed interval that, on every tick, calls
// TriggerRefresh for each registered reference whose cache entry needs
// refreshing. Its start/cancel-context/wait-on-done-channel shape follows
// the teacher's internal/rotation/health.HealthMonitor lifecycle.
type Polling struct {
	interval time.Duration
	bus      *eventbus.Bus
	log      logging.Logger

	mu       sync.Mutex
	prov     provider.Provider
	cache    *secretcache.Cache
	secrets  map[string]registeredSecret
	refs     map[string]reference.SecretReference
	applied  bool
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
}

// PollingOption configures a Polling policy at construction.
type PollingOption func(*Polling)

// WithBus installs the event bus TriggerRefresh publishes
// SecretRefreshRequested to.
func WithBus(bus *eventbus.Bus) PollingOption {
	return func(p *Polling) { p.bus = bus }
}

// WithLogger overrides the logger used to report background failures.
func WithLogger(l logging.Logger) PollingOption {
	return func(p *Polling) { p.log = l }
}

// NewPolling constructs a Polling policy with the given tick interval.
func NewPolling(interval time.Duration, opts ...PollingOption) *Polling {
	p := &Polling{
		interval: interval,
		log:      logging.NopLogger{},
		secrets:  make(map[string]registeredSecret),
		refs:     make(map[string]reference.SecretReference),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply implements refreshpolicy.Policy. Idempotent: only the first call
// binds provider/cache.
func (p *Polling) Apply(prov provider.Provider, cache *secretcache.Cache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applied {
		return
	}
	p.prov = prov
	p.cache = cache
	p.applied = true
}

// IsRefreshNeeded implements refreshpolicy.Policy's canonical rule: true
// iff cachedSecret is absent or the cache reports the entry stale.
func (p *Polling) IsRefreshNeeded(ref reference.SecretReference, cachedSecret *secretval.Secret) bool {
	if cachedSecret == nil {
		return true
	}
	return p.cache.IsStale(ref)
}

// RegisterSecret implements refreshpolicy.Policy.
func (p *Polling) RegisterSecret(ref reference.SecretReference, cred credential.AccessCredential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[ref.String()] = registeredSecret{cred: cred}
	p.refs[ref.String()] = ref
}

// UnregisterSecret implements refreshpolicy.Policy.
func (p *Polling) UnregisterSecret(ref reference.SecretReference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.secrets, ref.String())
	delete(p.refs, ref.String())
}

// TriggerRefresh implements refreshpolicy.Policy: publishes
// SecretRefreshRequested, then fetches and updates the cache directly.
// Errors are logged, never returned — background paths must not kill
// their worker on a single failure (spec §7).
func (p *Polling) TriggerRefresh(ctx context.Context, ref reference.SecretReference) {
	p.mu.Lock()
	rs, ok := p.secrets[ref.String()]
	prov, cache, bus := p.prov, p.cache, p.bus
	p.mu.Unlock()
	if !ok {
		p.log.Warn("polling: triggerRefresh for unregistered reference", "ref", ref)
		return
	}

	if bus != nil {
		bus.Publish(eventbus.NewSecretRefreshRequested(ref, "polling-tick"))
	}

	secret, err := prov.FetchSecret(ctx, ref, rs.cred)
	if err != nil {
		p.log.Error("polling: refresh failed", "ref", ref, "err", errs.AccessError{Reference: ref, Operation: "fetch", Err: err})
		return
	}
	cache.Put(secret)
	if bus != nil {
		bus.Publish(eventbus.NewSecretRefreshed(ref, secret.Metadata().Version(), true))
	}
}

// Start implements refreshpolicy.Policy. Idempotent; a second call while
// already running has no effect. Spawns one background goroutine that
// ticks every p.interval, calling TriggerRefresh for every registered
// reference that IsRefreshNeeded reports stale.
func (p *Polling) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.mu.Unlock()

	go p.run(runCtx, done)
	return nil
}

func (p *Polling) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Polling) tick(ctx context.Context) {
	p.mu.Lock()
	refs := make([]reference.SecretReference, 0, len(p.refs))
	for _, ref := range p.refs {
		refs = append(refs, ref)
	}
	p.mu.Unlock()

	for _, ref := range refs {
		cached, _ := p.cache.Get(ref)
		if p.IsRefreshNeeded(ref, cached) {
			p.TriggerRefresh(ctx, ref)
		}
	}
}

// Stop implements refreshpolicy.Policy: requests cooperative termination,
// waits up to stopWait for the tick loop to exit, then returns regardless
// (spec §5: "wait up to 5 seconds, then cancels hard" — context
// cancellation is the hard cancel here, so Stop never blocks past the
// bound).
func (p *Polling) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopWait):
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning implements refreshpolicy.Policy.
func (p *Polling) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

var _ Policy = (*Polling)(nil)
