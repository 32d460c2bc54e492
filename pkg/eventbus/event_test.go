package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsCarryUniqueIDsAndTimestamps(t *testing.T) {
	ref := testRef()
	a := NewSecretRefreshRequested(ref, "poll")
	b := NewSecretRefreshRequested(ref, "poll")

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, a.OccurredAt().IsZero())
}

func TestEventKinds(t *testing.T) {
	ref := testRef()
	assert.Equal(t, KindSecretRefreshRequested, NewSecretRefreshRequested(ref, "poll").Kind())
	assert.Equal(t, KindSecretRefreshed, NewSecretRefreshed(ref, "v1", true).Kind())
	assert.Equal(t, KindSecretRolloverDetected, NewSecretRolloverDetected(ref, ref.Sibling("inactive"), "v2").Kind())
}
