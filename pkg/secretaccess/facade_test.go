package secretaccess_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/internal/storeadapters/mock"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretaccess"
	"github.com/systmms/secretaccess/pkg/secretcache"
)

func apiKeyCred(t *testing.T) credential.AccessCredential {
	t.Helper()
	c, err := credential.NewCyberArkApiKey("k")
	require.NoError(t, err)
	return c
}

func buildFacade(t *testing.T, prov *mock.Provider) *secretaccess.Facade {
	t.Helper()
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBuildRequiresCache(t *testing.T) {
	_, err := secretaccess.NewBuilder().Build(context.Background())
	require.Error(t, err)
	var cfgErr errs.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRegisterGetRoundTrip(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("hunter2"), "v1")

	f := buildFacade(t, prov)
	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	secret, err := f.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret.Value())
}

func TestRegisterDuplicateNameIsConfigurationError(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("v"), "v1")

	f := buildFacade(t, prov)
	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	err := f.Register(context.Background(), "db", ref, apiKeyCred(t), nil)
	require.Error(t, err)
	var cfgErr errs.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGetUnknownNameIsConfigurationError(t *testing.T) {
	f := buildFacade(t, mock.New("t"))
	_, err := f.Get(context.Background(), "nope")
	require.Error(t, err)
	var cfgErr errs.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGetAsStringZeroesSecretAfterCopy(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("hunter2"), "v1")

	f := buildFacade(t, prov)
	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	s, err := f.GetAsString(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", s)

	secret, err := f.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret.Value(), "GetAsString zeroes its own scoped copy, not the cache entry")
}

func TestRefreshBypassesCacheAndPublishesRefreshed(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("v1-value"), "v1")

	var eventHandlerCalls int
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		WithEventSink(eventbus.KindSecretRefreshed, func(eventbus.Event) { eventHandlerCalls++ }).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))
	_, err = f.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, 1, eventHandlerCalls)

	prov.Seed(ref, []byte("v2-value"), "v2")
	secret, err := f.Refresh(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-value"), secret.Value())
	assert.Equal(t, 2, eventHandlerCalls)
}

func TestUnregisterThenGetIsConfigurationError(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("v"), "v1")

	f := buildFacade(t, prov)
	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))
	f.Unregister("db")

	_, err := f.Get(context.Background(), "db")
	require.Error(t, err)
}

func TestUnregisterUnknownNameIsNoOp(t *testing.T) {
	f := buildFacade(t, mock.New("t"))
	assert.NotPanics(t, func() { f.Unregister("nope") })
}

func TestCloseIsIdempotent(t *testing.T) {
	f := buildFacade(t, mock.New("t"))
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestBuildAppliesDefaultCacheTTL(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("v1-value"), "v1")

	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		WithDefaultCacheTTL(50 * time.Millisecond).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))
	_, err = f.Get(context.Background(), "db")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	prov.Seed(ref, []byte("v2-value"), "v2")
	secret, err := f.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-value"), secret.Value(), "expired cache entry forces a refetch")
}
