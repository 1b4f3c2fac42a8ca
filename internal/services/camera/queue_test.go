package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
)

func numberedFrame(n int64) *models.Frame {
	f := models.NewFrame("cam-1", 2, 2)
	f.Number = n
	return f
}

func TestPushDropsOldestWhenFull(t *testing.T) {
	q := NewFrameQueue(5)
	for n := int64(1); n <= 7; n++ {
		q.Push(numberedFrame(n))
	}

	assert.Equal(t, 5, q.Len())
	assert.Equal(t, int64(2), q.Dropped())

	f, ok := q.PopNewest()
	require.True(t, ok)
	assert.Equal(t, int64(7), f.Number)
}

func TestPopNewestDiscardsStale(t *testing.T) {
	q := NewFrameQueue(5)
	q.Push(numberedFrame(1))
	q.Push(numberedFrame(2))
	q.Push(numberedFrame(3))

	f, ok := q.PopNewest()
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Number)

	// Everything older was discarded, not queued.
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, int64(2), q.Dropped())

	_, ok = q.PopNewest()
	assert.False(t, ok)
}

func TestPopNewestEmpty(t *testing.T) {
	q := NewFrameQueue(5)
	f, ok := q.PopNewest()
	assert.Nil(t, f)
	assert.False(t, ok)
}

func TestMinimumCapacity(t *testing.T) {
	q := NewFrameQueue(0)
	q.Push(numberedFrame(1))
	q.Push(numberedFrame(2))

	f, ok := q.PopNewest()
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Number)
	assert.Equal(t, int64(1), q.Dropped())
}
