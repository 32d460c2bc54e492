// Package secretval defines the values the secret access core hands back
// to callers: SecretMetadata and Secret, plus a scoped wrapper guaranteeing
// buffer zeroing on every exit path.
package secretval

import (
	"fmt"
	"time"

	"github.com/systmms/secretaccess/pkg/reference"
)

// SecretMetadata describes provenance and versioning for a Secret.
// Equality ignores LastRetrieved; all other fields participate.
type SecretMetadata struct {
	version       string
	lastRetrieved time.Time
	storeType     reference.StoreType
	sourceRef     reference.SecretReference
}

// NewSecretMetadata constructs metadata for a freshly minted Secret.
func NewSecretMetadata(version string, lastRetrieved time.Time, storeType reference.StoreType, sourceRef reference.SecretReference) SecretMetadata {
	return SecretMetadata{
		version:       version,
		lastRetrieved: lastRetrieved,
		storeType:     storeType,
		sourceRef:     sourceRef,
	}
}

func (m SecretMetadata) Version() string                    { return m.version }
func (m SecretMetadata) LastRetrieved() time.Time            { return m.lastRetrieved }
func (m SecretMetadata) StoreType() reference.StoreType      { return m.storeType }
func (m SecretMetadata) SourceRef() reference.SecretReference { return m.sourceRef }

// WithLastRetrieved returns a copy of m with LastRetrieved replaced. m is
// unchanged; SecretMetadata is immutable.
func (m SecretMetadata) WithLastRetrieved(t time.Time) SecretMetadata {
	m.lastRetrieved = t
	return m
}

// WithVersion returns a copy of m with Version replaced. m is unchanged.
func (m SecretMetadata) WithVersion(version string) SecretMetadata {
	m.version = version
	return m
}

// Equal reports field equality ignoring LastRetrieved, matching the
// specification's equality law for metadata.
func (m SecretMetadata) Equal(other SecretMetadata) bool {
	return m.version == other.version &&
		m.storeType == other.storeType &&
		m.sourceRef.Equal(other.sourceRef)
}

func (m SecretMetadata) String() string {
	return fmt.Sprintf("SecretMetadata{version: %s, storeType: %s, sourceRef: %s, lastRetrieved: %s}",
		m.version, m.storeType, m.sourceRef, m.lastRetrieved.Format(time.RFC3339))
}
