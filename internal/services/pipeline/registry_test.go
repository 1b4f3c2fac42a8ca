package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	r := NewRegistry(st)
	r.LoadTypes()
	return r
}

func TestLoadTypesSkipsDisabled(t *testing.T) {
	r := newTestRegistry(t)

	types := r.Types()
	assert.Contains(t, types, "passthrough")
	assert.Contains(t, types, "threshold")
	assert.Contains(t, types, "edges")
	assert.NotContains(t, types, "calibration")
}

func TestAddPipeline(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.AddPipeline(0, "gate", "threshold", map[string]interface{}{"threshold": 200}))

	assert.NotNil(t, r.Instance(0))
	assert.Equal(t, "threshold", r.Type(0))
	assert.Equal(t, "gate", r.Name(0))
	assert.Equal(t, 200, r.Settings(0).GetInt("threshold"))
	assert.Equal(t, []int{0}, r.Indices())
}

func TestAddPipelineRejectsUnknownType(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.AddPipeline(0, "x", "does-not-exist", nil))
	assert.Error(t, r.AddPipeline(0, "x", "calibration", nil))
}

func TestAddPipelineRejectsBusyIndex(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPipeline(0, "a", "passthrough", nil))
	assert.Error(t, r.AddPipeline(0, "b", "passthrough", nil))
}

func TestAddPipelineRejectsBadSettings(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.AddPipeline(0, "gate", "threshold", map[string]interface{}{"threshold": 999}))
	assert.Nil(t, r.Instance(0))
}

func TestRemovePipelineFiresListener(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPipeline(3, "a", "passthrough", nil))

	var removed []int
	r.OnRemoved(func(index int) { removed = append(removed, index) })

	require.NoError(t, r.RemovePipeline(3))
	assert.Equal(t, []int{3}, removed)
	assert.Nil(t, r.Instance(3))
	assert.Error(t, r.RemovePipeline(3))
}

func TestDefaultPipeline(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddPipeline(1, "a", "passthrough", nil))

	assert.Equal(t, models.InvalidPipeline, r.DefaultPipeline("cam-1"))

	require.NoError(t, r.SetDefaultPipeline("cam-1", 1))
	assert.Equal(t, 1, r.DefaultPipeline("cam-1"))

	assert.Error(t, r.SetDefaultPipeline("cam-1", 9))
	assert.Equal(t, 1, r.DefaultPipeline("cam-1"))
}

func TestSetDefaultPipelinePersistedToCameraConfig(t *testing.T) {
	st, err := store.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	st.UpsertCamera(models.CameraConfig{ID: "cam-1"})

	r := NewRegistry(st)
	r.LoadTypes()
	require.NoError(t, r.AddPipeline(2, "a", "passthrough", nil))
	require.NoError(t, r.SetDefaultPipeline("cam-1", 2))

	cfg, ok := st.Camera("cam-1")
	require.True(t, ok)
	assert.Equal(t, 2, cfg.DefaultPipeline)

	// A fresh registry over the same document sees the new default.
	r2 := NewRegistry(st)
	r2.LoadTypes()
	r2.LoadSettings()
	assert.Equal(t, 2, r2.DefaultPipeline("cam-1"))
}

func TestLoadSettingsRestoresPersistedPipelines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	st, err := store.Load(path)
	require.NoError(t, err)
	st.SetPipeline(2, store.PipelineRecord{
		Type:     "threshold",
		Name:     "gate",
		Settings: map[string]interface{}{"threshold": 64},
	})
	st.SetPipeline(5, store.PipelineRecord{Type: "gone-type"})

	r := NewRegistry(st)
	r.LoadTypes()
	r.LoadSettings()

	assert.Equal(t, []int{2}, r.Indices())
	assert.Equal(t, 64, r.Settings(2).GetInt("threshold"))
	// The stale record for the unknown type is dropped, not fatal.
	assert.Nil(t, r.Instance(5))
}
