// Package provider defines the contract store adapters implement: the
// opaque boundary between the resolution/freshness engine and a concrete
// remote secret store. internal/storeadapters/* supplies the concrete
// implementations (mock, AWS Secrets Manager, CyberArk-style vault).
package provider

import (
	"context"

	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// Provider adapts one backing store's protocol to the core's resolution
// engine. FetchSecret is the only operation every adapter must implement
// meaningfully; GetLatestVersion and SupportsChangeNotifications are
// optional hooks adapters with no cheaper check can satisfy by embedding
// NoOpVersionCheck / NoChangeNotifications.
type Provider interface {
	// FetchSecret retrieves the secret identified by ref using cred.
	// Implementations must set the returned Secret's metadata.sourceRef to
	// ref and metadata.storeType to ref.StoreType(), and must populate
	// Version with a stable opaque identifier: the same bytes iff the
	// underlying secret is unchanged, a new identifier on every rotation.
	// Errors are wrapped as internal/errs.AccessError by the caller.
	FetchSecret(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (*secretval.Secret, error)

	// SupportsStore reports whether this provider handles the given store
	// family. Consulted by the Provider Registry.
	SupportsStore(storeType reference.StoreType) bool

	// GetLatestVersion returns the latest version identifier for ref
	// without fetching the full secret value, for cheap staleness checks.
	// The bool is false when the provider has no cheaper check than a full
	// fetch.
	GetLatestVersion(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (string, bool, error)

	// SupportsChangeNotifications reports whether this provider can push
	// change notifications (as opposed to requiring polling).
	SupportsChangeNotifications() bool
}

// Capabilities is an optional, supplemental introspection surface some
// adapters implement beyond the required Provider contract — useful to a
// host CLI or diagnostics surface (out of the core's scope), never
// consulted by the Resolver Aggregate itself.
type Capabilities struct {
	SupportsVersioning   bool
	SupportsBinaryValues bool
	SupportsChangeNotify bool
}

// CapabilityReporter is implemented by adapters that expose Capabilities.
// Not required by Provider; the registry and resolver never type-assert
// for it.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// NoOpVersionCheck is embedded by adapters with no cheap latest-version
// check; GetLatestVersion always reports false.
type NoOpVersionCheck struct{}

func (NoOpVersionCheck) GetLatestVersion(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (string, bool, error) {
	return "", false, nil
}

// NoChangeNotifications is embedded by adapters with no push-notification
// support; SupportsChangeNotifications always reports false.
type NoChangeNotifications struct{}

func (NoChangeNotifications) SupportsChangeNotifications() bool { return false }
