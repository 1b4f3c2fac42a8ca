package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
)

var ladder = []models.Resolution{
	{Width: 320, Height: 240, FPS: 30},
	{Width: 640, Height: 480, FPS: 30},
	{Width: 1280, Height: 720, FPS: 30},
}

func TestNegotiateModeExactMatch(t *testing.T) {
	mode, ok := NegotiateMode(ladder, 30, 640, 480)
	require.True(t, ok)
	assert.Equal(t, models.Resolution{Width: 640, Height: 480, FPS: 30}, mode)
}

func TestNegotiateModeFallsBackToLargest(t *testing.T) {
	mode, ok := NegotiateMode(ladder, 60, 1920, 1080)
	assert.False(t, ok)
	assert.Equal(t, models.Resolution{Width: 1280, Height: 720, FPS: 30}, mode)
}

func TestNegotiateModeFPSMustMatchToo(t *testing.T) {
	mode, ok := NegotiateMode(ladder, 60, 640, 480)
	assert.False(t, ok)
	assert.Equal(t, models.Resolution{Width: 1280, Height: 720, FPS: 30}, mode)
}

func TestMockDeviceRetriesAndFrames(t *testing.T) {
	dev := NewMockDevice("cam-1")
	dev.FailConnects(2)

	assert.Error(t, dev.Connect())
	assert.Error(t, dev.Connect())
	require.NoError(t, dev.Connect())
	require.True(t, dev.IsConnected())

	_, ok := dev.GrabFrame()
	assert.False(t, ok)

	dev.InjectFrame(models.NewFrame("cam-1", 4, 4))
	f, ok := dev.GrabFrame()
	require.True(t, ok)
	assert.Equal(t, int64(1), f.Number)
}
