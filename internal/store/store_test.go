package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
)

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Empty(t, s.Cameras())
	assert.Empty(t, s.Pipelines())
	assert.Empty(t, s.NetworkID())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := Load(path)
	require.NoError(t, err)

	s.SetNetworkID("team-1234")
	s.UpsertCamera(models.CameraConfig{
		ID:              "usb-acme_cam-0",
		Nickname:        "front",
		DevicePath:      "/dev/video0",
		DefaultPipeline: 2,
		StreamRes:       models.Resolution{Width: 320, Height: 240, FPS: 30},
		Rotation:        1,
	})
	s.SetPipeline(2, PipelineRecord{
		Type:     "threshold",
		Name:     "gate",
		Settings: map[string]interface{}{"threshold": 200},
	})
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)

	cam, ok := reloaded.Camera("usb-acme_cam-0")
	require.True(t, ok)
	assert.Equal(t, "front", cam.Nickname)
	assert.Equal(t, 2, cam.DefaultPipeline)
	assert.Equal(t, 1, cam.Rotation)
	assert.Equal(t, 320, cam.StreamRes.Width)

	rec, ok := reloaded.Pipelines()[2]
	require.True(t, ok)
	assert.Equal(t, "threshold", rec.Type)
	assert.Equal(t, "gate", rec.Name)
	assert.Equal(t, 200, rec.Settings["threshold"])
}

func TestDeletePipeline(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	s.SetPipeline(1, PipelineRecord{Type: "passthrough"})
	s.DeletePipeline(1)

	assert.Empty(t, s.Pipelines())
}
