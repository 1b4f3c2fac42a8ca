package syncbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := NewMemoryBus()

	var aCalls, bCalls int
	unsubA, err := b.Subscribe("k", func(string, interface{}) { aCalls++ })
	require.NoError(t, err)
	unsubB, err := b.Subscribe("k", func(string, interface{}) { bCalls++ })
	require.NoError(t, err)

	// Unsubscribing the earlier handler must not disturb the later one.
	unsubA()
	b.Inject("k", 1)
	assert.Equal(t, 0, aCalls)
	assert.Equal(t, 1, bCalls)

	unsubB()
	b.Inject("k", 2)
	assert.Equal(t, 1, bCalls)

	// Unsubscribe is idempotent.
	unsubA()
	unsubB()
	b.Inject("k", 3)
	assert.Equal(t, 0, aCalls)
	assert.Equal(t, 1, bCalls)
}

func TestMemoryBusKeysAreIndependent(t *testing.T) {
	b := NewMemoryBus()

	var calls int
	_, err := b.Subscribe("a", func(string, interface{}) { calls++ })
	require.NoError(t, err)

	b.Inject("b", 1)
	assert.Equal(t, 0, calls)

	b.Inject("a", 1)
	assert.Equal(t, 1, calls)
}
