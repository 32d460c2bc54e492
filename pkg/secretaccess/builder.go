package secretaccess

import (
	"context"
	"time"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/coordinator"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/registry"
	"github.com/systmms/secretaccess/pkg/resolve"
	"github.com/systmms/secretaccess/pkg/secretcache"
)

// Builder collects a Facade's collaborators through chained With* setter
// methods, each returning the Builder, and constructs a Facade with its
// Refresh Coordinator already running. Optional settings left unset stay
// nil and Build falls back to each component's own default.
type Builder struct {
	providers     []provider.Provider
	cache         *secretcache.Cache
	defaultPolicy refreshpolicy.Policy
	eventHandlers []eventSubscription
	historyLimit  *int
	defaultTTL    *time.Duration
	sweepInterval *time.Duration
}

type eventSubscription struct {
	kind    eventbus.Kind
	handler eventbus.Handler
}

// NewBuilder constructs an empty Builder. WithCache is required before
// Build; every other option has a usable default.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithProvider registers p, making it eligible to resolve any reference
// whose store type p.SupportsStore reports true for. Providers are
// consulted in registration order (spec §4.2).
func (b *Builder) WithProvider(p provider.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithCache installs the shared Cache every Resolver Aggregate reads
// through. Required: Build fails with ConfigurationError if never called.
func (b *Builder) WithCache(cache *secretcache.Cache) *Builder {
	b.cache = cache
	return b
}

// WithDefaultRefreshPolicy installs the policy used by Register calls that
// omit their own policy.
func (b *Builder) WithDefaultRefreshPolicy(policy refreshpolicy.Policy) *Builder {
	b.defaultPolicy = policy
	return b
}

// WithEventSink subscribes handler to every event of kind (eventbus.KindAny
// for all events) published on the built Facade's Event Bus — the wiring
// point for internal/eventsinks/{logsink,metricsink,natssink}.
func (b *Builder) WithEventSink(kind eventbus.Kind, handler eventbus.Handler) *Builder {
	b.eventHandlers = append(b.eventHandlers, eventSubscription{kind: kind, handler: handler})
	return b
}

// WithEventHistoryLimit bounds the Event Bus's optional debugging history.
func (b *Builder) WithEventHistoryLimit(limit int) *Builder {
	b.historyLimit = &limit
	return b
}

// WithDefaultCacheTTL applies ttl to the cache at build time, before any
// secret is registered.
func (b *Builder) WithDefaultCacheTTL(ttl time.Duration) *Builder {
	b.defaultTTL = &ttl
	return b
}

// WithSweepInterval overrides the Refresh Coordinator's sweep period.
func (b *Builder) WithSweepInterval(d time.Duration) *Builder {
	b.sweepInterval = &d
	return b
}

// Build constructs the Facade and starts its Refresh Coordinator. Building
// without a cache is a ConfigurationError (spec §4.7).
func (b *Builder) Build(ctx context.Context) (*Facade, error) {
	if b.cache == nil {
		return nil, errs.ConfigurationError{Field: "cache", Message: "Builder.WithCache is required"}
	}
	if b.defaultTTL != nil {
		b.cache.SetDefaultTTL(*b.defaultTTL)
	}

	var busOpts []eventbus.Option
	if b.historyLimit != nil {
		busOpts = append(busOpts, eventbus.WithHistoryLimit(*b.historyLimit))
	}
	bus := eventbus.New(busOpts...)
	for _, sub := range b.eventHandlers {
		bus.Subscribe(sub.kind, sub.handler)
	}

	reg := registry.New()
	for _, p := range b.providers {
		reg.Register(p)
	}

	var coordOpts []coordinator.Option
	if b.sweepInterval != nil {
		coordOpts = append(coordOpts, coordinator.WithSweepInterval(*b.sweepInterval))
	}
	coord := coordinator.New(bus, coordOpts...)
	if err := coord.Start(ctx); err != nil {
		return nil, err
	}

	return &Facade{
		registry:      reg,
		cache:         b.cache,
		bus:           bus,
		coordinator:   coord,
		defaultPolicy: b.defaultPolicy,
		names:         make(map[string]*resolve.Resolver),
	}, nil
}
