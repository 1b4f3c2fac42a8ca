package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = SettingsSchema{
	{Key: "threshold", Kind: KindInt, Min: 0, Max: 255, Default: 128},
	{Key: "gain", Kind: KindFloat, Min: 0, Max: 4, Default: 1.0},
	{Key: "invert", Kind: KindBool, Default: false},
	{Key: "label", Kind: KindString, Default: "main"},
}

func TestNewPipelineSettingsSeedsDefaults(t *testing.T) {
	ps, err := NewPipelineSettings(testSchema, nil)
	require.NoError(t, err)

	assert.Equal(t, 128, ps.GetInt("threshold"))
	v, ok := ps.Get("invert")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestNewPipelineSettingsRejectsUnknownInitialKey(t *testing.T) {
	_, err := NewPipelineSettings(testSchema, map[string]interface{}{"bogus": 1})
	assert.Error(t, err)
}

func TestSetCoercesJSONNumbers(t *testing.T) {
	ps, err := NewPipelineSettings(testSchema, nil)
	require.NoError(t, err)

	// JSON decoding hands us float64 for integer settings.
	require.NoError(t, ps.Set("threshold", float64(200)))
	assert.Equal(t, 200, ps.GetInt("threshold"))
}

func TestSetEnforcesRange(t *testing.T) {
	ps, err := NewPipelineSettings(testSchema, nil)
	require.NoError(t, err)

	assert.Error(t, ps.Set("threshold", 300))
	assert.Error(t, ps.Set("gain", -0.5))
	assert.Equal(t, 128, ps.GetInt("threshold"))
}

func TestSetEnforcesKind(t *testing.T) {
	ps, err := NewPipelineSettings(testSchema, nil)
	require.NoError(t, err)

	assert.Error(t, ps.Set("invert", "yes"))
	assert.Error(t, ps.Set("label", 5))
}

func TestSnapshotIsACopy(t *testing.T) {
	ps, err := NewPipelineSettings(testSchema, nil)
	require.NoError(t, err)

	snap := ps.Snapshot()
	snap["threshold"] = 0

	assert.Equal(t, 128, ps.GetInt("threshold"))
}
