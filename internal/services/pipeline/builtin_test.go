package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
)

type captureResults struct {
	values map[string]interface{}
}

func (c *captureResults) PublishResult(key string, value interface{}) {
	if c.values == nil {
		c.values = make(map[string]interface{})
	}
	c.values[key] = value
}

func TestThresholdProducesGrayAndMask(t *testing.T) {
	settings, err := models.NewPipelineSettings(builtins["threshold"].Schema, map[string]interface{}{"threshold": 100})
	require.NoError(t, err)

	pipe := builtins["threshold"].New(settings)
	pub := &captureResults{}
	pipe.(ResultAware).SetResultPublisher(pub)

	// 2x1 frame: one bright white pixel, one black pixel.
	frame := models.NewFrame("cam-1", 2, 1)
	frame.Data[0], frame.Data[1], frame.Data[2] = 255, 255, 255

	res, err := pipe.ProcessFrame(frame, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ResultMany, res.Kind)
	require.Len(t, res.Frames, 2)

	gray, mask := res.Frames[0], res.Frames[1]

	b, g, r := gray.At(0, 0)
	assert.Equal(t, b, g)
	assert.Equal(t, g, r)

	mb, _, _ := mask.At(0, 0)
	assert.Equal(t, byte(255), mb)
	mb, _, _ = mask.At(1, 0)
	assert.Equal(t, byte(0), mb)

	assert.Equal(t, 1, pub.values["lit_pixels"])
}

func TestThresholdLeavesInputUntouched(t *testing.T) {
	settings, err := models.NewPipelineSettings(builtins["threshold"].Schema, nil)
	require.NoError(t, err)
	pipe := builtins["threshold"].New(settings)

	frame := models.NewFrame("cam-1", 2, 2)
	frame.Data[0], frame.Data[1], frame.Data[2] = 10, 20, 30

	_, err = pipe.ProcessFrame(frame, time.Now())
	require.NoError(t, err)

	b, g, r := frame.At(0, 0)
	assert.Equal(t, [3]byte{10, 20, 30}, [3]byte{b, g, r})
}

func TestEdgesProducesThreeSteps(t *testing.T) {
	settings, err := models.NewPipelineSettings(builtins["edges"].Schema, map[string]interface{}{"kernel": 1})
	require.NoError(t, err)
	pipe := builtins["edges"].New(settings)

	// Hard vertical edge down the middle.
	frame := models.NewFrame("cam-1", 4, 2)
	for y := 0; y < 2; y++ {
		for x := 2; x < 4; x++ {
			i := (y*4 + x) * 3
			frame.Data[i], frame.Data[i+1], frame.Data[i+2] = 255, 255, 255
		}
	}

	res, err := pipe.ProcessFrame(frame, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ResultMany, res.Kind)
	assert.Len(t, res.Frames, 3)
}

func TestPassthroughReturnsInput(t *testing.T) {
	pipe := builtins["passthrough"].New(nil)

	frame := models.NewFrame("cam-1", 2, 2)
	res, err := pipe.ProcessFrame(frame, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ResultSingle, res.Kind)
	assert.Same(t, frame, res.Frame)
}
