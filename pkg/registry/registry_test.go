package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

type fakeProvider struct {
	provider.NoOpVersionCheck
	provider.NoChangeNotifications
	name       string
	storeTypes map[reference.StoreType]bool
}

func (f *fakeProvider) FetchSecret(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (*secretval.Secret, error) {
	return nil, nil
}

func (f *fakeProvider) SupportsStore(storeType reference.StoreType) bool {
	return f.storeTypes[storeType]
}

func TestFindForReturnsFirstMatchInInsertionOrder(t *testing.T) {
	r := New()
	first := &fakeProvider{name: "first", storeTypes: map[reference.StoreType]bool{reference.AwsSecretsManager: true}}
	second := &fakeProvider{name: "second", storeTypes: map[reference.StoreType]bool{reference.AwsSecretsManager: true}}
	r.Register(first)
	r.Register(second)

	got, ok := r.FindFor(reference.AwsSecretsManager)
	assert.True(t, ok)
	assert.Same(t, first, got)
}

func TestFindForReturnsFalseWhenUnsupported(t *testing.T) {
	r := New()
	r.Register(&fakeProvider{name: "aws-only", storeTypes: map[reference.StoreType]bool{reference.AwsSecretsManager: true}})

	_, ok := r.FindFor(reference.CyberArk)
	assert.False(t, ok)
}

func TestFindForOnEmptyRegistry(t *testing.T) {
	r := New()
	_, ok := r.FindFor(reference.AwsSecretsManager)
	assert.False(t, ok)
}
