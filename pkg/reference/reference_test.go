package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("DefaultsVersionHintToLatest", func(t *testing.T) {
		ref, err := New(AwsSecretsManager, "db/creds", "")
		require.NoError(t, err)
		assert.Equal(t, VersionLatest, ref.VersionHint())
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		_, err := New(AwsSecretsManager, "", "latest")
		assert.Error(t, err)
	})

	t.Run("PreservesFields", func(t *testing.T) {
		ref, err := New(CyberArk, "rot", "active")
		require.NoError(t, err)
		assert.Equal(t, CyberArk, ref.StoreType())
		assert.Equal(t, "rot", ref.Name())
		assert.Equal(t, "active", ref.VersionHint())
	})
}

func TestEquality(t *testing.T) {
	a := MustNew(AwsSecretsManager, "db/creds", "latest")
	b := MustNew(AwsSecretsManager, "db/creds", "latest")
	c := MustNew(AwsSecretsManager, "db/creds", "v2")

	assert.True(t, a.Equal(a), "reflexive")
	assert.True(t, a.Equal(b), "symmetric candidate")
	assert.True(t, b.Equal(a), "symmetric")
	assert.False(t, a.Equal(c))

	// Transitive: b == a and a == b, so b must equal any ref equal to a.
	d := MustNew(AwsSecretsManager, "db/creds", "latest")
	assert.True(t, a.Equal(d))
	assert.True(t, b.Equal(d))
}

func TestIsActiveVersion(t *testing.T) {
	assert.True(t, MustNew(CyberArk, "rot", "active").IsActiveVersion())
	assert.True(t, MustNew(CyberArk, "rot", "ACTIVE").IsActiveVersion())
	assert.False(t, MustNew(CyberArk, "rot", "inactive").IsActiveVersion())
	assert.False(t, MustNew(CyberArk, "rot", "latest").IsActiveVersion())
}

func TestSibling(t *testing.T) {
	active := MustNew(CyberArk, "rot", "active")
	inactive := active.Sibling(VersionInactive)

	assert.Equal(t, active.StoreType(), inactive.StoreType())
	assert.Equal(t, active.Name(), inactive.Name())
	assert.Equal(t, VersionInactive, inactive.VersionHint())
	assert.False(t, active.Equal(inactive))
}

func TestStringRedactsNothingSensitive(t *testing.T) {
	ref := MustNew(AwsSecretsManager, "db/creds", "latest")
	assert.Equal(t, "aws.secretsmanager/db/creds@latest", ref.String())
}
