// Package mock implements an in-memory Provider used by tests and by
// callers exercising the core without a live backing store. It is the
// adapter the teacher's own tests/fakes.FakeProvider stood in for: a
// seedable map of reference -> (value, version), where each Seed call sets
// the version explicitly, so rollover and staleness tests can drive it
// deterministically.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

type entry struct {
	value   []byte
	version string
}

// Provider is a seedable, in-memory store adapter. The zero value is not
// usable; construct with New.
type Provider struct {
	mu          sync.Mutex
	stores      map[reference.StoreType]bool
	secrets     map[string]entry
	fetchCalls  map[string]int
	failNext    map[string]error
	idSeq       int
	idPrefix    string
	latency     time.Duration
	notifyCaps  bool
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithStores limits SupportsStore to the given store types. By default a
// mock Provider supports every StoreType it is asked about, which is
// convenient for single-adapter tests but wrong when a test registers two
// mock providers against two store types; pass WithStores to scope one.
func WithStores(types ...reference.StoreType) Option {
	return func(p *Provider) {
		p.stores = make(map[reference.StoreType]bool, len(types))
		for _, t := range types {
			p.stores[t] = true
		}
	}
}

// WithChangeNotifications makes SupportsChangeNotifications report true.
func WithChangeNotifications() Option {
	return func(p *Provider) { p.notifyCaps = true }
}

// WithLatency makes every FetchSecret call sleep for d before returning,
// useful for exercising the single-flight coalescing window in tests.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// New constructs an empty mock Provider. idPrefix namespaces the
// generated Secret ids, useful when a test registers more than one mock.
func New(idPrefix string, opts ...Option) *Provider {
	p := &Provider{
		secrets:    make(map[string]entry),
		fetchCalls: make(map[string]int),
		failNext:   make(map[string]error),
		idPrefix:   idPrefix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Seed installs value under ref with the given version, overwriting any
// prior seed. Use distinct versions across successive Seed calls for the
// same ref to simulate rotation.
func (p *Provider) Seed(ref reference.SecretReference, value []byte, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[key(ref)] = entry{value: append([]byte(nil), value...), version: version}
}

// FailNext makes the next FetchSecret for ref return err instead of
// consulting the seeded value. Cleared after it fires once.
func (p *Provider) FailNext(ref reference.SecretReference, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext[key(ref)] = err
}

// CallCount returns how many times FetchSecret has been called for ref.
func (p *Provider) CallCount(ref reference.SecretReference) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls[key(ref)]
}

func key(ref reference.SecretReference) string { return ref.String() }

// FetchSecret implements provider.Provider.
func (p *Provider) FetchSecret(ctx context.Context, ref reference.SecretReference, _ credential.AccessCredential) (*secretval.Secret, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	k := key(ref)
	p.fetchCalls[k]++
	if err := p.failNext[k]; err != nil {
		delete(p.failNext, k)
		p.mu.Unlock()
		return nil, err
	}
	e, ok := p.secrets[k]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("mock: no secret seeded for %s", ref)
	}
	p.idSeq++
	id := fmt.Sprintf("%s-%d", p.idPrefix, p.idSeq)
	p.mu.Unlock()

	meta := secretval.NewSecretMetadata(e.version, time.Now(), ref.StoreType(), ref)
	return secretval.NewSecret(id, ref.Name(), e.value, meta), nil
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType reference.StoreType) bool {
	if p.stores == nil {
		return true
	}
	return p.stores[storeType]
}

// GetLatestVersion implements provider.Provider's optional cheap check by
// consulting the seeded version directly, without minting a Secret.
func (p *Provider) GetLatestVersion(ctx context.Context, ref reference.SecretReference, _ credential.AccessCredential) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.secrets[key(ref)]
	if !ok {
		return "", false, nil
	}
	return e.version, true, nil
}

// SupportsChangeNotifications implements provider.Provider.
func (p *Provider) SupportsChangeNotifications() bool { return p.notifyCaps }

// Capabilities implements provider.CapabilityReporter.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning:   true,
		SupportsBinaryValues: true,
		SupportsChangeNotify: p.notifyCaps,
	}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.CapabilityReporter = (*Provider)(nil)
