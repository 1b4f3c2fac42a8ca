package camera

import (
	"sync"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/helpers"
	"vision-runtime-go/internal/models"
)

// StreamSink is the production publish sink: every written frame is kept for
// snapshots, encoded to JPEG, and announced to attached MJPEG streamers.
type StreamSink struct {
	res models.Resolution

	mu      sync.RWMutex
	latest  *models.Frame
	jpeg    []byte
	writes  int64
	subs    map[int]chan struct{}
	nextSub int
}

func NewStreamSink(res models.Resolution) *StreamSink {
	return &StreamSink{
		res:  res,
		subs: make(map[int]chan struct{}),
	}
}

func (s *StreamSink) Write(f *models.Frame) error {
	jpeg, err := helpers.EncodeJPEG(f, 90)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = f
	s.jpeg = jpeg
	s.writes++
	subs := make([]chan struct{}, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	// Streamers that cannot keep up miss notifications, not memory.
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *StreamSink) Resolution() models.Resolution {
	return s.res
}

// Latest returns the most recently published frame, nil before the first
// write.
func (s *StreamSink) Latest() *models.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// LatestJPEG returns the current encoded frame.
func (s *StreamSink) LatestJPEG() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg
}

// Writes reports how many frames have been published.
func (s *StreamSink) Writes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Subscribe attaches a streamer. The returned channel fires after each write;
// cancel detaches the streamer.
func (s *StreamSink) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 5)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		log.Debug().Msg("MJPEG streamer detached")
	}
}
