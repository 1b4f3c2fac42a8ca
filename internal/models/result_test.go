package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultLen(t *testing.T) {
	f := NewFrame("cam-1", 2, 2)

	assert.Equal(t, 0, NoResult().Len())
	assert.Equal(t, 1, SingleResult(f).Len())
	assert.Equal(t, 3, ManyResult(f, f.Clone(), f.Clone()).Len())
}

func TestPickSelectsStep(t *testing.T) {
	a := NewFrame("cam-1", 2, 2)
	b := a.Clone()
	c := a.Clone()
	res := ManyResult(a, b, c)

	assert.Same(t, a, res.Pick("step_0"))
	assert.Same(t, b, res.Pick("step_1"))
	assert.Same(t, c, res.Pick("step_2"))
}

func TestPickFallsBackToLastFrame(t *testing.T) {
	a := NewFrame("cam-1", 2, 2)
	b := a.Clone()
	res := ManyResult(a, b)

	// Out of range and garbage selectors both land on the final step.
	assert.Same(t, b, res.Pick("step_9"))
	assert.Same(t, b, res.Pick("not-a-selector"))
	assert.Same(t, b, res.Pick(""))
}

func TestPickIgnoresSelectorForSingle(t *testing.T) {
	f := NewFrame("cam-1", 2, 2)
	assert.Same(t, f, SingleResult(f).Pick("step_7"))
}

func TestPickNone(t *testing.T) {
	assert.Nil(t, NoResult().Pick("step_0"))
}

func TestParseViewSelector(t *testing.T) {
	n, err := ParseViewSelector("step_2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = ParseViewSelector("frame_2")
	assert.Error(t, err)

	_, err = ParseViewSelector("step_x")
	assert.Error(t, err)
}
