// Package e2e exercises the Facade end to end, through its Builder, the
// way a real caller would: no internal package is imported except the
// mock store adapter used in place of a live backing store. These mirror
// the scenario numbering the components' own package tests use at the
// Resolver Aggregate level, but drive everything through the public
// pkg/secretaccess surface instead.
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// S1 — cold read.
func TestColdRead(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("abc"), "v1")

	var refreshed []eventbus.SecretRefreshed
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		WithEventSink(eventbus.KindSecretRefreshed, func(e eventbus.Event) {
			refreshed = append(refreshed, e.(eventbus.SecretRefreshed))
		}).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	secret, err := f.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), secret.Value())
	assert.Equal(t, 1, prov.CallCount(ref))
	require.Len(t, refreshed, 1)
	assert.True(t, refreshed[0].ValueChanged)
}

// S2 — warm read.
func TestWarmRead(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("abc"), "v1")

	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	first, err := f.Get(context.Background(), "db")
	require.NoError(t, err)
	second, err := f.Get(context.Background(), "db")
	require.NoError(t, err)

	assert.Equal(t, 1, prov.CallCount(ref))
	assert.True(t, first.Equal(second))
}

// S3 — stale read.
func TestStaleRead(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("abc"), "v1")

	cache := secretcache.New()
	cache.SetDefaultTTL(100 * time.Millisecond)

	var refreshedCount int
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(cache).
		WithEventSink(eventbus.KindSecretRefreshed, func(eventbus.Event) { refreshedCount++ }).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "db", ref, apiKeyCred(t), nil))

	_, err = f.Get(context.Background(), "db")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	_, err = f.Get(context.Background(), "db")
	require.NoError(t, err)

	assert.Equal(t, 2, prov.CallCount(ref))
	assert.Equal(t, 2, refreshedCount)
}

// S4 — rollover.
func TestRollover(t *testing.T) {
	prov := mock.New("t")
	activeRef := reference.MustNew(reference.AwsSecretsManager, "rot", "active")
	inactiveRef := activeRef.Sibling(reference.VersionInactive)

	cache := secretcache.New()
	inactiveProv := mock.New("inactive")
	inactiveProv.Seed(inactiveRef, []byte("old-inactive"), "v0")
	inactiveSecret, err := inactiveProv.FetchSecret(context.Background(), inactiveRef, apiKeyCred(t))
	require.NoError(t, err)
	cache.Put(inactiveSecret)

	prov.Seed(activeRef, []byte("value-v1"), "v1")

	var order []string
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(cache).
		WithEventSink(eventbus.KindSecretRolloverDetected, func(eventbus.Event) { order = append(order, "rollover") }).
		WithEventSink(eventbus.KindSecretRefreshed, func(eventbus.Event) { order = append(order, "refreshed") }).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "rot-active", activeRef, apiKeyCred(t), nil))

	_, err = f.Refresh(context.Background(), "rot-active")
	require.NoError(t, err)
	assert.Equal(t, []string{"refreshed"}, order, "no prior value yet, nothing to roll over from")

	order = nil
	prov.Seed(activeRef, []byte("value-v2"), "v2")
	_, err = f.Refresh(context.Background(), "rot-active")
	require.NoError(t, err)

	require.Equal(t, []string{"rollover", "refreshed"}, order)
}

// S5 — provider error.
func TestProviderError(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "x", "latest")
	prov.FailNext(ref, assert.AnError)

	var refreshed int
	f, err := secretaccess.NewBuilder().
		WithProvider(prov).
		WithCache(secretcache.New()).
		WithEventSink(eventbus.KindSecretRefreshed, func(eventbus.Event) { refreshed++ }).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.Register(context.Background(), "x", ref, apiKeyCred(t), nil))

	_, err = f.Get(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 0, refreshed)
}

// S6 — cross-type credential rejection.
func TestCrossTypeCredentialRejection(t *testing.T) {
	_, err := credential.NewIamRole(credential.STSAssumeRoleConfig{})
	assert.Error(t, err, "an STSAssumeRoleConfig with no role ARN must be rejected")

	_, err = credential.NewCyberArkApiKey("")
	assert.Error(t, err, "an empty API key must be rejected")
}
