package camera

import (
	"sync"

	"vision-runtime-go/internal/models"
)

// FrameSink receives published output frames for one camera, already scaled
// to the camera's stream resolution.
type FrameSink interface {
	Write(f *models.Frame) error
	Resolution() models.Resolution
}

// SnapshotSink keeps the latest published frame for the HTTP snapshot
// endpoint and counts writes.
type SnapshotSink struct {
	res models.Resolution

	mu     sync.RWMutex
	latest *models.Frame
	writes int64
}

func NewSnapshotSink(res models.Resolution) *SnapshotSink {
	return &SnapshotSink{res: res}
}

func (s *SnapshotSink) Write(f *models.Frame) error {
	s.mu.Lock()
	s.latest = f
	s.writes++
	s.mu.Unlock()
	return nil
}

func (s *SnapshotSink) Resolution() models.Resolution {
	return s.res
}

// Latest returns the most recently published frame, nil before the first
// write.
func (s *SnapshotSink) Latest() *models.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Writes reports how many frames have been published.
func (s *SnapshotSink) Writes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
