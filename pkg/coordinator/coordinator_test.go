package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretaccess/pkg/coordinator"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/secretval"
)

func testRef() reference.SecretReference {
	return reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
}

func testSecret(ref reference.SecretReference) *secretval.Secret {
	meta := secretval.NewSecretMetadata("v1", time.Now(), ref.StoreType(), ref)
	return secretval.NewSecret("id-1", ref.Name(), []byte("abc"), meta)
}

func testCred(t *testing.T) credential.AccessCredential {
	t.Helper()
	c, err := credential.NewCyberArkApiKey("k")
	require.NoError(t, err)
	return c
}

func TestTriggerRefreshReturnsFalseForUnregistered(t *testing.T) {
	c := coordinator.New(eventbus.New())
	ok := c.TriggerRefresh(context.Background(), testRef(), "test")
	assert.False(t, ok)
}

func TestTriggerRefreshPublishesRequestedAndCallsRefresh(t *testing.T) {
	bus := eventbus.New()
	var requested int
	bus.Subscribe(eventbus.KindSecretRefreshRequested, func(eventbus.Event) { requested++ })

	c := coordinator.New(bus)
	ref := testRef()
	var calls int
	c.RegisterSecret(ref, testCred(t), nil, func(ctx context.Context) (*secretval.Secret, error) {
		calls++
		return testSecret(ref), nil
	})

	ok := c.TriggerRefresh(context.Background(), ref, "manual")
	assert.True(t, ok)
	assert.Equal(t, 1, requested)
	assert.Equal(t, 1, calls)
}

func TestTriggerRefreshSwallowsError(t *testing.T) {
	c := coordinator.New(eventbus.New())
	ref := testRef()
	c.RegisterSecret(ref, testCred(t), nil, func(ctx context.Context) (*secretval.Secret, error) {
		return nil, errors.New("down")
	})

	ok := c.TriggerRefresh(context.Background(), ref, "manual")
	assert.True(t, ok, "TriggerRefresh reports whether ref is registered, not whether the refresh succeeded")
}

func TestHandleRefreshEventDrivesRegisteredReference(t *testing.T) {
	c := coordinator.New(eventbus.New())
	ref := testRef()
	var calls int
	c.RegisterSecret(ref, testCred(t), nil, func(ctx context.Context) (*secretval.Secret, error) {
		calls++
		return testSecret(ref), nil
	})

	c.HandleRefreshEvent(context.Background(), eventbus.NewSecretRefreshRequested(ref, "webhook"))
	assert.Equal(t, 1, calls)
}

func TestStartStopIsDeterministic(t *testing.T) {
	c := coordinator.New(eventbus.New(), coordinator.WithSweepInterval(5*time.Millisecond))
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
}

func TestStartIsIdempotent(t *testing.T) {
	c := coordinator.New(eventbus.New())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop())
}

func TestSweepTriggersOnlyPolicyOptedInReferences(t *testing.T) {
	c := coordinator.New(eventbus.New(), coordinator.WithSweepInterval(10*time.Millisecond))

	swept := testRef()
	var sweptCalls int
	c.RegisterSecret(swept, testCred(t), refreshpolicy.NewPolling(time.Hour), func(ctx context.Context) (*secretval.Secret, error) {
		sweptCalls++
		return testSecret(swept), nil
	})

	notSwept := reference.MustNew(reference.CyberArk, "other", "latest")
	var notSweptCalls int
	c.RegisterSecret(notSwept, testCred(t), nil, func(ctx context.Context) (*secretval.Secret, error) {
		notSweptCalls++
		return testSecret(notSwept), nil
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return sweptCalls >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())

	assert.Equal(t, 0, notSweptCalls)
}
