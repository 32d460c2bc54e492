// Package secretcache implements the Cache component: a thread-safe
// mapping from SecretReference to (Secret, expiry), with per-entry TTL
// override and staleness query.
package secretcache

import (
	"sync"
	"time"

	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// defaultTTL is the reference implementation's initial default TTL.
const defaultTTL = 15 * time.Minute

type entry struct {
	secret *secretval.Secret
	expiry time.Time
}

// Cache is safe for concurrent use. Mutation is serialized per-entry via a
// single map mutex; provider calls never happen under this lock.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]entry
	ttlOverride map[string]time.Duration
	defaultTTL  time.Duration
	now         func() time.Time
}

// New constructs an empty Cache with the reference default TTL (15
// minutes).
func New() *Cache {
	return &Cache{
		entries:     make(map[string]entry),
		ttlOverride: make(map[string]time.Duration),
		defaultTTL:  defaultTTL,
		now:         time.Now,
	}
}

func key(ref reference.SecretReference) string { return ref.String() }

// Get returns the cached Secret and true iff present and not expired.
// Lazily drops expired entries observed during the call.
func (c *Cache) Get(ref reference.SecretReference) (*secretval.Secret, bool) {
	k := key(ref)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiry) {
		delete(c.entries, k)
		return nil, false
	}
	return e.secret, true
}

// Put inserts or replaces the entry keyed by secret.Metadata().SourceRef().
// Expiry is computed as now + the per-reference TTL override if set, else
// the cache default.
func (c *Cache) Put(secret *secretval.Secret) {
	ref := secret.Metadata().SourceRef()
	k := key(ref)

	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.defaultTTL
	if override, ok := c.ttlOverride[k]; ok {
		ttl = override
	}
	c.entries[k] = entry{secret: secret, expiry: c.now().Add(ttl)}
}

// Invalidate removes the entry for ref, if any.
func (c *Cache) Invalidate(ref reference.SecretReference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(ref))
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// SetDefaultTTL sets the process-lifetime mutable default TTL used for
// references with no per-reference override.
func (c *Cache) SetDefaultTTL(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = d
}

// GetDefaultTTL returns the current default TTL.
func (c *Cache) GetDefaultTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultTTL
}

// SetTTL installs a per-reference TTL override, persisting across Puts
// until replaced by another SetTTL call; Invalidate and Clear remove
// entries only, not overrides.
func (c *Cache) SetTTL(ref reference.SecretReference, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttlOverride[key(ref)] = d
}

// IsStale reports whether ref's cache entry is absent or expired.
func (c *Cache) IsStale(ref reference.SecretReference) bool {
	_, ok := c.Get(ref)
	return !ok
}
