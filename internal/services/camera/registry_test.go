package camera

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/config"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/capture"
	"vision-runtime-go/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DiscoveryInterval:   time.Hour,
		OpenRetries:         3,
		OpenRetryBackoff:    time.Millisecond,
		FrameQueueSize:      5,
		DefaultStreamWidth:  4,
		DefaultStreamHeight: 4,
		DefaultStreamFPS:    30,
		RecordingDir:        t.TempDir(),
	}
}

func testRegistry(t *testing.T, cfg *config.Config) (*Registry, *capture.MockDevice) {
	t.Helper()
	st, err := store.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	r := NewRegistry(cfg, st)
	dev := capture.NewMockDevice("cam-1")
	r.SetDeviceOpener(func(capture.DeviceInfo) capture.Device { return dev })
	t.Cleanup(r.Cleanup)
	return r, dev
}

func streamConfig(id string) models.CameraConfig {
	return models.CameraConfig{
		ID:        id,
		StreamRes: models.Resolution{Width: 4, Height: 4, FPS: 30},
	}
}

func TestAddCameraRetriesWithinBudget(t *testing.T) {
	r, dev := testRegistry(t, testConfig(t))
	dev.FailConnects(2)

	require.True(t, r.AddCamera("cam-1", streamConfig("cam-1"), dev.Path()))

	cam, ok := r.Camera("cam-1")
	require.True(t, ok)
	assert.True(t, cam.Device.IsConnected())
}

func TestAddCameraGivesUpAfterBudget(t *testing.T) {
	r, dev := testRegistry(t, testConfig(t))
	dev.FailConnects(3)

	assert.False(t, r.AddCamera("cam-1", streamConfig("cam-1"), dev.Path()))

	_, ok := r.Camera("cam-1")
	assert.False(t, ok)
}

func TestDiscoverSynthesizesAndPersistsConfig(t *testing.T) {
	cfg := testConfig(t)
	st, err := store.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	r := NewRegistry(cfg, st)
	t.Cleanup(r.Cleanup)
	r.SetDeviceOpener(func(info capture.DeviceInfo) capture.Device {
		return capture.NewMockDevice(info.ID)
	})
	r.SetEnumerator(func() []capture.DeviceInfo {
		return []capture.DeviceInfo{{ID: "usb-acme_cam-0", Name: "Acme Cam", Path: "/dev/video0"}}
	})

	r.Discover()

	cam, ok := r.Camera("usb-acme_cam-0")
	require.True(t, ok)
	assert.Equal(t, "Acme Cam", cam.Config.Nickname)

	persisted, ok := st.Camera("usb-acme_cam-0")
	require.True(t, ok)
	assert.Equal(t, 4, persisted.StreamRes.Width)
	assert.Equal(t, 30, persisted.StreamRes.FPS)

	// A second pass must not disturb the registered camera.
	r.Discover()
	assert.Len(t, r.Cameras(), 1)
}

func TestPublishFrameUpdatesSnapshot(t *testing.T) {
	r, _ := testRegistry(t, testConfig(t))
	require.True(t, r.AddCamera("cam-1", streamConfig("cam-1"), "/dev/mock"))

	frame := models.NewFrame("cam-1", 4, 4)
	require.NoError(t, r.PublishFrame(frame, "cam-1"))

	cam, _ := r.Camera("cam-1")
	sink := cam.Sink.(*SnapshotSink)
	assert.NotNil(t, sink.Latest())
	assert.Equal(t, int64(1), sink.Writes())

	assert.Error(t, r.PublishFrame(frame, "unknown"))
}

func TestRecordingTeesPublishedFrames(t *testing.T) {
	cfg := testConfig(t)
	r, _ := testRegistry(t, cfg)
	require.True(t, r.AddCamera("cam-1", streamConfig("cam-1"), "/dev/mock"))

	require.NoError(t, r.SetRecording("cam-1", true))

	frame := models.NewFrame("cam-1", 4, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.PublishFrame(frame, "cam-1"))
	}

	cam, _ := r.Camera("cam-1")
	cam.recMu.Lock()
	recorder := cam.recorder
	cam.recMu.Unlock()
	require.NotNil(t, recorder)
	assert.Equal(t, int64(3), recorder.FrameCount())

	// Turning recording off closes the sink and drops the handle.
	require.NoError(t, r.SetRecording("cam-1", false))
	cam.recMu.Lock()
	assert.Nil(t, cam.recorder)
	cam.recMu.Unlock()

	files, err := filepath.Glob(filepath.Join(cfg.RecordingDir, "cam-1", "*.vrf"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRecordingOffIsLazy(t *testing.T) {
	r, _ := testRegistry(t, testConfig(t))
	require.True(t, r.AddCamera("cam-1", streamConfig("cam-1"), "/dev/mock"))

	// No recorder until recording is on and a frame flows.
	require.NoError(t, r.SetRecording("cam-1", true))
	cam, _ := r.Camera("cam-1")
	cam.recMu.Lock()
	assert.Nil(t, cam.recorder)
	cam.recMu.Unlock()
	assert.True(t, cam.Recording())
}
