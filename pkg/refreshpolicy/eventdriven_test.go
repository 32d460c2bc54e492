package refreshpolicy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretaccess/internal/storeadapters/mock"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/refreshpolicy"
	"github.com/systmms/secretaccess/pkg/secretcache"
)

func TestEventDrivenNotifyTriggersRefresh(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	prov.Seed(ref, []byte("v1"), "1")

	cache := secretcache.New()
	bus := eventbus.New()
	var requested, refreshed int
	bus.Subscribe(eventbus.KindSecretRefreshRequested, func(eventbus.Event) { requested++ })
	bus.Subscribe(eventbus.KindSecretRefreshed, func(eventbus.Event) { refreshed++ })

	e := refreshpolicy.NewEventDriven(refreshpolicy.WithEventDrivenBus(bus))
	e.Apply(prov, cache)
	cred, err := credential.NewCyberArkApiKey("k")
	require.NoError(t, err)
	e.RegisterSecret(ref, cred)
	require.NoError(t, e.Start(context.Background()))

	e.Notify(context.Background(), refreshpolicy.Notification{Ref: ref, Reason: "test"})

	assert.Equal(t, 1, requested)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 1, prov.CallCount(ref))

	_, ok := cache.Get(ref)
	assert.True(t, ok)
}

func TestEventDrivenIgnoresUnregisteredNotify(t *testing.T) {
	prov := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")

	e := refreshpolicy.NewEventDriven()
	e.Apply(prov, secretcache.New())
	require.NoError(t, e.Start(context.Background()))

	e.Notify(context.Background(), refreshpolicy.Notification{Ref: ref})
	assert.Equal(t, 0, prov.CallCount(ref))
}

func TestEventDrivenStartStopIdempotent(t *testing.T) {
	e := refreshpolicy.NewEventDriven()
	e.Apply(mock.New("t"), secretcache.New())
	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Start(context.Background()))
	assert.True(t, e.IsRunning())
	require.NoError(t, e.Stop())
	assert.False(t, e.IsRunning())
}
