// Package cyberark adapts a CyberArk-style vault to the Provider contract
// (pkg/provider). The retrieval pack carries no CyberArk SDK; it does
// carry the teacher's Akeyless integration (internal/providers/akeyless.go,
// akeyless_client.go), which authenticates with a bearer API key and
// addresses secrets by path — the same shape spec.md §3 describes for the
// CyberArkApiKey credential method. This adapter is grounded on that
// client, substituting Akeyless as the concrete vault behind the
// reference.CyberArk store type (documented in DESIGN.md).
package cyberark

import (
	"context"
	"fmt"
	"sync"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// tokenTTL mirrors the teacher's conservative margin below Akeyless's
// actual ~30 minute token lifetime.
const tokenTTL = 25 * time.Minute

// APIClient is the subset of *akeyless.APIClient's V2Api this adapter
// calls, narrowed so tests can substitute a fake.
type APIClient interface {
	Auth(ctx context.Context, accessID, accessKey string) (string, error)
	GetSecretValue(ctx context.Context, token, path string) (string, error)
	DescribeItem(ctx context.Context, token, path string) (itemVersion string, modifiedAt time.Time, err error)
}

// sdkClient adapts the real akeyless-go client to APIClient.
type sdkClient struct {
	api *akeyless.APIClient
}

func (c *sdkClient) Auth(ctx context.Context, accessID, accessKey string) (string, error) {
	body := akeyless.NewAuthWithDefaults()
	body.SetAccessId(accessID)
	body.SetAccessKey(accessKey)
	res, _, err := c.api.V2Api.Auth(ctx).Body(*body).Execute()
	if err != nil {
		return "", fmt.Errorf("cyberark: api key auth: %w", err)
	}
	return res.GetToken(), nil
}

func (c *sdkClient) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)
	res, _, err := c.api.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}
	value, ok := res[path]
	if !ok {
		return "", fmt.Errorf("cyberark: %s not present in response", path)
	}
	return value, nil
}

func (c *sdkClient) DescribeItem(ctx context.Context, token, path string) (string, time.Time, error) {
	body := akeyless.NewDescribeItem(path)
	body.SetToken(token)
	res, _, err := c.api.V2Api.DescribeItem(ctx).Body(*body).Execute()
	if err != nil {
		return "", time.Time{}, err
	}
	version := "0"
	if res.LastVersion != nil {
		version = fmt.Sprintf("%d", *res.LastVersion)
	}
	modified := time.Now()
	if res.ModificationDate != nil {
		modified = *res.ModificationDate
	}
	return version, modified, nil
}

// Provider implements provider.Provider against a CyberArk-style vault.
type Provider struct {
	accessID string
	client   APIClient

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithClient injects an APIClient, for tests.
func WithClient(c APIClient) Option {
	return func(p *Provider) { p.client = c }
}

// New constructs a Provider addressing the vault at gatewayURL,
// authenticating with accessID (the vault-assigned access id paired with
// the AccessCredential's API key at fetch time).
func New(gatewayURL, accessID string, opts ...Option) *Provider {
	p := &Provider{accessID: accessID}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		cfg := akeyless.NewConfiguration()
		cfg.Servers = []akeyless.ServerConfiguration{{URL: gatewayURL}}
		p.client = &sdkClient{api: akeyless.NewAPIClient(cfg)}
	}
	return p
}

// FetchSecret implements provider.Provider.
func (p *Provider) FetchSecret(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (*secretval.Secret, error) {
	apiKey, ok := cred.APIKey()
	if !ok {
		return nil, errs.ValidationError{Field: "credential", Message: "cyberark requires a CYBERARK_API_KEY credential"}
	}

	token, err := p.getToken(ctx, apiKey)
	if err != nil {
		return nil, errs.AccessError{Reference: ref, Operation: "authenticate", Err: err}
	}

	value, err := p.client.GetSecretValue(ctx, token, ref.Name())
	if err != nil {
		return nil, errs.AccessError{Reference: ref, Operation: "fetch", Err: err}
	}

	version, modified, err := p.client.DescribeItem(ctx, token, ref.Name())
	if err != nil {
		version = "unknown"
		modified = time.Now()
	}

	meta := secretval.NewSecretMetadata(version, modified, ref.StoreType(), ref)
	id := ref.Name() + "@" + version
	return secretval.NewSecret(id, ref.Name(), []byte(value), meta), nil
}

// getToken returns a cached, unexpired auth token or authenticates afresh.
func (p *Provider) getToken(ctx context.Context, apiKey string) (string, error) {
	p.mu.Lock()
	if p.token != "" && time.Now().Before(p.expires) {
		token := p.token
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	token, err := p.client.Auth(ctx, p.accessID, apiKey)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.token = token
	p.expires = time.Now().Add(tokenTTL)
	p.mu.Unlock()
	return token, nil
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType reference.StoreType) bool {
	return storeType == reference.CyberArk
}

// GetLatestVersion implements provider.Provider using DescribeItem, which
// is cheaper than a full GetSecretValue round-trip.
func (p *Provider) GetLatestVersion(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (string, bool, error) {
	apiKey, ok := cred.APIKey()
	if !ok {
		return "", false, nil
	}
	token, err := p.getToken(ctx, apiKey)
	if err != nil {
		return "", false, err
	}
	version, _, err := p.client.DescribeItem(ctx, token, ref.Name())
	if err != nil {
		return "", false, err
	}
	return version, true, nil
}

// SupportsChangeNotifications implements provider.Provider; this adapter
// has no push channel, only polling via GetLatestVersion.
func (p *Provider) SupportsChangeNotifications() bool { return false }

// Capabilities implements provider.CapabilityReporter.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsVersioning: true, SupportsBinaryValues: false}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.CapabilityReporter = (*Provider)(nil)
