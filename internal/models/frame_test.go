package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paintPixel(f *Frame, x, y int, b, g, r byte) {
	i := (y*f.Width + x) * bytesPerPixel
	f.Data[i], f.Data[i+1], f.Data[i+2] = b, g, r
}

func TestCloneIsIndependent(t *testing.T) {
	src := NewFrame("cam-1", 2, 2)
	paintPixel(src, 0, 0, 10, 20, 30)

	dup := src.Clone()
	paintPixel(dup, 0, 0, 99, 99, 99)

	b, g, r := src.At(0, 0)
	assert.Equal(t, byte(10), b)
	assert.Equal(t, byte(20), g)
	assert.Equal(t, byte(30), r)
}

func TestRotate90Clockwise(t *testing.T) {
	// 3x2 frame, one marked pixel at the top-left.
	src := NewFrame("cam-1", 3, 2)
	paintPixel(src, 0, 0, 1, 2, 3)

	dst := src.Rotate90(1)

	require.Equal(t, 2, dst.Width)
	require.Equal(t, 3, dst.Height)

	// Top-left moves to the top-right corner on a clockwise turn.
	b, g, r := dst.At(1, 0)
	assert.Equal(t, byte(1), b)
	assert.Equal(t, byte(2), g)
	assert.Equal(t, byte(3), r)
}

func TestRotate90FullTurnRestoresFrame(t *testing.T) {
	src := NewFrame("cam-1", 4, 3)
	for i := range src.Data {
		src.Data[i] = byte(i % 251)
	}

	dst := src.Rotate90(4)

	require.Equal(t, src.Width, dst.Width)
	require.Equal(t, src.Height, dst.Height)
	assert.Equal(t, src.Data, dst.Data)
}

func TestRotate90NegativeTurns(t *testing.T) {
	src := NewFrame("cam-1", 3, 2)
	paintPixel(src, 0, 0, 7, 8, 9)

	// -1 turns is the same as 3 clockwise turns.
	left := src.Rotate90(-1)
	threes := src.Rotate90(3)

	require.Equal(t, threes.Width, left.Width)
	require.Equal(t, threes.Height, left.Height)
	assert.Equal(t, threes.Data, left.Data)
}
