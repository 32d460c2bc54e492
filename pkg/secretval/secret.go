package secretval

import (
	"fmt"
	"sync"

	"github.com/systmms/secretaccess/internal/secure"
)

// Secret is a fetched value: an id, a name, a memguard-backed value
// buffer, and metadata. Equality is by id only. Reads of Value return a
// defensive copy out of the protected enclave; callers that want
// guaranteed zeroing on every exit path should use Scoped instead of
// reading Value directly.
type Secret struct {
	mu       sync.Mutex
	id       string
	name     string
	buf      *secure.SecureBuffer
	metadata SecretMetadata
}

// NewSecret constructs a Secret. value is copied into a protected enclave
// (internal/secure); the caller retains ownership of the slice passed in
// and may zero or discard it freely afterward.
func NewSecret(id, name string, value []byte, metadata SecretMetadata) *Secret {
	owned := make([]byte, len(value))
	copy(owned, value)
	buf, _ := secure.NewSecureBuffer(owned) // NewSecureBuffer never errors today
	return &Secret{id: id, name: name, buf: buf, metadata: metadata}
}

func (s *Secret) ID() string { return s.id }

func (s *Secret) Name() string { return s.name }

func (s *Secret) Metadata() SecretMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// Value returns a defensive copy of the secret buffer, decrypted out of
// the protected enclave for the duration of the call only. The returned
// slice is safe for the caller to mutate or zero without affecting this
// Secret. Returns an empty slice once ClearValue has run.
func (s *Secret) Value() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked, err := s.buf.Open()
	if err != nil {
		return nil
	}
	defer locked.Destroy()
	src := locked.Bytes()
	cp := make([]byte, len(src))
	copy(cp, src)
	return cp
}

// ClearValue destroys the protected enclave backing this Secret, leaving
// it holding no recoverable plaintext. Idempotent; safe to call more than
// once. Must only be called once no live caller still holds this exact
// Secret (see Scoped) — the cache itself is such a holder, so cache
// eviction never calls this (see the Cache section of DESIGN.md).
func (s *Secret) ClearValue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Destroy()
}

// Equal compares Secrets by id only, per the specification's equality law.
func (s *Secret) Equal(other *Secret) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id
}

// String renders id, name, and metadata but never the value, per the
// core's redaction contract.
func (s *Secret) String() string {
	return fmt.Sprintf("Secret{id: %s, name: %s, metadata: %s, value: [REDACTED]}", s.id, s.name, s.Metadata())
}

// Scoped runs fn with this Secret, guaranteeing ClearValue runs on every
// exit path from fn — normal return, error return, or panic.
func Scoped(s *Secret, fn func(*Secret) error) error {
	defer s.ClearValue()
	return fn(s)
}
