// Package coordinator implements the Refresh Coordinator component (spec
// §4.6): a process-wide façade over Refresh Policies that drives a
// low-frequency sweep and gives externally received SecretRefreshRequested
// events (from a webhook adapter, a NATS subscription) a single entry
// point. Its start/cancel-context/wait-on-done-channel lifecycle mirrors
// pkg/refreshpolicy.Polling, grounded in the same teacher health-monitor
// shape SPEC_FULL.md names.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// defaultSweepInterval is the reference implementation's low-frequency
// sweep period (spec §4.6: "reference: 1 minute").
const defaultSweepInterval = time.Minute

// stopWait bounds how long Stop waits for the sweep loop to notice
// cancellation (spec §5).
const stopWait = 5 * time.Second

// RefreshFunc performs the actual fetch/cache-update for one reference —
// bound to a pkg/resolve.Resolver's RefreshSecret by the Facade at
// registration time, so the Coordinator never imports pkg/resolve
// directly and stays a thin orchestration layer over whatever owns the
// per-reference state machine.
type RefreshFunc func(ctx context.Context) (*secretval.Secret, error)

type registration struct {
	cred    credential.AccessCredential
	policy  refreshpolicy.Policy
	refresh RefreshFunc
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	bus           *eventbus.Bus
	log           logging.Logger
	sweepInterval time.Duration

	mu      sync.Mutex
	regs    map[string]registration
	refs    map[string]reference.SecretReference
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithSweepInterval overrides the default one-minute sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.sweepInterval = d }
}

// WithLogger overrides the logger used to report swallowed errors.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// New constructs a Coordinator publishing lifecycle events to bus.
func New(bus *eventbus.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		bus:           bus,
		log:           logging.NopLogger{},
		sweepInterval: defaultSweepInterval,
		regs:          make(map[string]registration),
		refs:          make(map[string]reference.SecretReference),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterSecret registers ref with the credential and refresh function to
// use when driving it, and an optional policy that opts ref into the
// periodic sweep (spec §9 Open Question 2: the credential is supplied up
// front, not left nil for some out-of-band mechanism to fill in later).
func (c *Coordinator) RegisterSecret(ref reference.SecretReference, cred credential.AccessCredential, policy refreshpolicy.Policy, refresh RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[ref.String()] = registration{cred: cred, policy: policy, refresh: refresh}
	c.refs[ref.String()] = ref
}

// UnregisterSecret removes ref's registration, if any.
func (c *Coordinator) UnregisterSecret(ref reference.SecretReference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.regs, ref.String())
	delete(c.refs, ref.String())
}

// TriggerRefresh requests a refresh for ref, returning false if ref is
// unregistered (no credential bound). On success it publishes
// SecretRefreshRequested then invokes the bound refresh function; a
// refresh error is swallowed and logged through the Coordinator's logger,
// never returned to the caller (spec §7). No event is published on the
// bus for a failed refresh.
func (c *Coordinator) TriggerRefresh(ctx context.Context, ref reference.SecretReference, reason string) bool {
	c.mu.Lock()
	reg, ok := c.regs[ref.String()]
	c.mu.Unlock()
	if !ok {
		return false
	}

	if c.bus != nil {
		c.bus.Publish(eventbus.NewSecretRefreshRequested(ref, reason))
	}

	if _, err := reg.refresh(ctx); err != nil {
		c.log.Error("coordinator: refresh failed", "ref", ref, "err", errs.AccessError{Reference: ref, Operation: "coordinator-refresh", Err: err})
	}
	return true
}

// HandleRefreshEvent is the entry point for an externally received
// SecretRefreshRequested event (e.g. relayed from a NATS subscription by
// internal/eventsinks/natssink). It looks up the registered credential
// for event.Ref and refreshes; errors are logged, never raised, matching
// TriggerRefresh's swallow policy.
func (c *Coordinator) HandleRefreshEvent(ctx context.Context, event eventbus.SecretRefreshRequested) {
	if ok := c.TriggerRefresh(ctx, event.Ref, "external:"+event.Reason); !ok {
		c.log.Warn("coordinator: refresh event for unregistered reference", "ref", event.Ref)
	}
}

// Start implements the Coordinator's lifecycle: idempotent, spawns one
// sweep goroutine ticking every sweepInterval that calls TriggerRefresh
// for every registered reference whose policy opts in (non-nil).
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
	return nil
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Coordinator) sweep(ctx context.Context) {
	c.mu.Lock()
	var targets []reference.SecretReference
	for k, reg := range c.regs {
		if reg.policy != nil {
			targets = append(targets, c.refs[k])
		}
	}
	c.mu.Unlock()

	for _, ref := range targets {
		c.TriggerRefresh(ctx, ref, "coordinator-sweep")
	}
}

// Stop requests cooperative termination of the sweep loop and waits up to
// stopWait before returning (spec §5); IsRunning reports false
// immediately after Stop returns, per testable property 6.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopWait):
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

// IsRunning reports whether the sweep goroutine is active.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
