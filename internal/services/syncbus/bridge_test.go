package syncbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSuppressesUnchangedValue(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	assert.True(t, bridge.Publish("camera/a/settings/threshold", 128))
	assert.False(t, bridge.Publish("camera/a/settings/threshold", 128))
	assert.True(t, bridge.Publish("camera/a/settings/threshold", 200))

	assert.Equal(t, 2, bus.Writes("camera/a/settings/threshold"))
}

func TestRemoteValueIsNeverEchoedBack(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	var got interface{}
	_, err := bridge.Listen("camera/a/settings/threshold", func(_ string, value interface{}) {
		got = value
		// A handler that writes the same value back must be a no-op.
		bridge.Publish("camera/a/settings/threshold", value)
	})
	require.NoError(t, err)

	bus.Inject("camera/a/settings/threshold", float64(80))

	assert.Equal(t, float64(80), got)
	assert.Equal(t, 0, bus.Writes("camera/a/settings/threshold"))
}

func TestPublishMatchesAcrossNumericTypes(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	_, err := bridge.Listen("camera/a/settings/threshold", func(string, interface{}) {})
	require.NoError(t, err)
	bus.Inject("camera/a/settings/threshold", float64(80))

	// The locally coerced int compares equal to the float64 off the wire.
	assert.False(t, bridge.Publish("camera/a/settings/threshold", 80))
}

func TestForceAlwaysWrites(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	bridge.Publish("camera/a/pipeline", 1)
	bridge.Force("camera/a/pipeline", 1)
	bridge.Force("camera/a/pipeline", 1)

	assert.Equal(t, 3, bus.Writes("camera/a/pipeline"))
}

func TestListenUpdatesCacheBeforeHandler(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	var cached interface{}
	_, err := bridge.Listen("camera/a/view", func(_ string, _ interface{}) {
		cached, _ = bridge.LastKnown("camera/a/view")
	})
	require.NoError(t, err)

	bus.Inject("camera/a/view", "step_1")
	assert.Equal(t, "step_1", cached)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	bridge := NewBridge(bus)

	calls := 0
	unsub, err := bridge.Listen("camera/a/record", func(string, interface{}) { calls++ })
	require.NoError(t, err)

	bus.Inject("camera/a/record", true)
	unsub()
	bus.Inject("camera/a/record", false)

	assert.Equal(t, 1, calls)
}

func TestKeyJoinsWithSlashes(t *testing.T) {
	assert.Equal(t, "camera/a/settings/threshold", Key("camera", "a", "settings", "threshold"))
}
