// Package reference defines the identity types used to address a secret:
// StoreType, the family of backing store, and SecretReference, the
// immutable (storeType, name, versionHint) triple used as both cache key
// and registration key throughout the secret access core.
package reference

import (
	"fmt"
	"strings"
)

// StoreType is an enumerated tag identifying a family of backing secret
// stores. It carries no behavior of its own — routing to a concrete
// Provider happens through the provider registry, keyed on this tag.
type StoreType string

const (
	// AwsSecretsManager identifies AWS Secrets Manager as a backing store.
	AwsSecretsManager StoreType = "aws.secretsmanager"

	// CyberArk identifies a CyberArk-style vault as a backing store.
	CyberArk StoreType = "cyberark"
)

// String returns the store type's tag, unredacted — store type names are
// not sensitive.
func (t StoreType) String() string { return string(t) }

// Rollover version hints carry additional semantics (spec §4.4): a
// reference whose VersionHint equals "active" (case-insensitively) is
// eligible for rollover detection against its "inactive" sibling.
const (
	VersionLatest   = "latest"
	VersionActive   = "active"
	VersionInactive = "inactive"
)

// SecretReference identifies one secret within one store: the store
// family, the store-local name, and a version hint. It is immutable once
// constructed and is used verbatim as both the cache key and the
// registration key.
type SecretReference struct {
	storeType   StoreType
	name        string
	versionHint string
}

// New constructs a SecretReference. name must be non-empty. versionHint
// defaults to VersionLatest when empty; "active"/"inactive" (any case)
// carry rollover semantics (see Sibling and IsActiveVersion).
func New(storeType StoreType, name, versionHint string) (SecretReference, error) {
	if name == "" {
		return SecretReference{}, fmt.Errorf("reference: name must not be empty")
	}
	if versionHint == "" {
		versionHint = VersionLatest
	}
	return SecretReference{storeType: storeType, name: name, versionHint: versionHint}, nil
}

// MustNew is New, panicking on error. Intended for constant references
// built in tests and package-level initialization.
func MustNew(storeType StoreType, name, versionHint string) SecretReference {
	ref, err := New(storeType, name, versionHint)
	if err != nil {
		panic(err)
	}
	return ref
}

// StoreType returns the reference's store family.
func (r SecretReference) StoreType() StoreType { return r.storeType }

// Name returns the store-local secret identifier.
func (r SecretReference) Name() string { return r.name }

// VersionHint returns the version hint, defaulting to "latest".
func (r SecretReference) VersionHint() string { return r.versionHint }

// IsActiveVersion reports whether this reference's version hint is
// "active" (case-insensitive), making it eligible for rollover detection
// against its inactive sibling.
func (r SecretReference) IsActiveVersion() bool {
	return strings.EqualFold(r.versionHint, VersionActive)
}

// Sibling returns the reference sharing this reference's store type and
// name but with the given version hint — used to form the "inactive"
// counterpart of an "active" reference during rollover detection.
func (r SecretReference) Sibling(versionHint string) SecretReference {
	return SecretReference{storeType: r.storeType, name: r.name, versionHint: versionHint}
}

// Equal reports whether two references are identical across all three
// fields. Equality does not fold version-hint case beyond the canonical
// IsActiveVersion check; "latest" and "Latest" are distinct references
// unless the caller normalizes them, matching the spec's field-for-field
// equality law.
func (r SecretReference) Equal(other SecretReference) bool {
	return r.storeType == other.storeType && r.name == other.name && r.versionHint == other.versionHint
}

// String renders the reference for logs and cache keys. It discloses no
// secret material — a reference identifies a secret, it is not one.
func (r SecretReference) String() string {
	return fmt.Sprintf("%s/%s@%s", r.storeType, r.name, r.versionHint)
}
