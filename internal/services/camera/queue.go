package camera

import (
	"sync"

	"vision-runtime-go/internal/models"
)

// FrameQueue is the bounded handoff between a camera's capture worker and
// its dispatch worker. A push against a full queue discards the oldest
// buffered frame, so memory stays bounded and the freshest frame wins.
// Entries are immutable once enqueued.
type FrameQueue struct {
	mu       sync.Mutex
	frames   []*models.Frame
	capacity int
	dropped  int64
}

func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{capacity: capacity}
}

// Push enqueues a frame, dropping the oldest entry when full.
func (q *FrameQueue) Push(f *models.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == q.capacity {
		q.frames = q.frames[1:]
		q.dropped++
	}
	q.frames = append(q.frames, f)
}

// PopNewest returns the most recently pushed frame and discards anything
// older; stale frames are never worth processing. Non-blocking.
func (q *FrameQueue) PopNewest() (*models.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[len(q.frames)-1]
	q.dropped += int64(len(q.frames) - 1)
	q.frames = q.frames[:0]
	return f, true
}

// Len reports the number of buffered frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Dropped reports how many frames were discarded, by overflow or staleness.
func (q *FrameQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
