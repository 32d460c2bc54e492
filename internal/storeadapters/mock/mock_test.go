package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretaccess/internal/storeadapters/mock"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/reference"
)

func TestFetchSecretReturnsSeededValue(t *testing.T) {
	p := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	p.Seed(ref, []byte("abc"), "v1")

	cred, err := credential.NewCyberArkApiKey("k")
	require.NoError(t, err)

	secret, err := p.FetchSecret(context.Background(), ref, cred)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), secret.Value())
	assert.Equal(t, "v1", secret.Metadata().Version())
	assert.True(t, secret.Metadata().SourceRef().Equal(ref))
	assert.Equal(t, 1, p.CallCount(ref))
}

func TestFetchSecretUnseededReturnsError(t *testing.T) {
	p := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "missing", "latest")
	cred, _ := credential.NewCyberArkApiKey("k")

	_, err := p.FetchSecret(context.Background(), ref, cred)
	assert.Error(t, err)
}

func TestFailNextFiresOnce(t *testing.T) {
	p := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	p.Seed(ref, []byte("abc"), "v1")
	sentinel := errors.New("down")
	p.FailNext(ref, sentinel)
	cred, _ := credential.NewCyberArkApiKey("k")

	_, err := p.FetchSecret(context.Background(), ref, cred)
	assert.ErrorIs(t, err, sentinel)

	secret, err := p.FetchSecret(context.Background(), ref, cred)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), secret.Value())
}

func TestSupportsStoreDefaultsToEverything(t *testing.T) {
	p := mock.New("t")
	assert.True(t, p.SupportsStore(reference.AwsSecretsManager))
	assert.True(t, p.SupportsStore(reference.CyberArk))
}

func TestWithStoresScopesSupport(t *testing.T) {
	p := mock.New("t", mock.WithStores(reference.CyberArk))
	assert.False(t, p.SupportsStore(reference.AwsSecretsManager))
	assert.True(t, p.SupportsStore(reference.CyberArk))
}

func TestGetLatestVersionReflectsSeed(t *testing.T) {
	p := mock.New("t")
	ref := reference.MustNew(reference.AwsSecretsManager, "db/creds", "latest")
	p.Seed(ref, []byte("abc"), "v1")

	v, ok, err := p.GetLatestVersion(context.Background(), ref, credential.AccessCredential{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}
