package camera

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/models"
)

var recordingMagic = [4]byte{'V', 'R', 'F', '1'}

// RecordingSink writes raw frames to a per-camera file. Each record is a
// fixed header (magic, width, height, timestamp nanos, payload length)
// followed by the BGR payload. Created lazily on the first write after
// recording turns on; Close flushes and rejects further writes.
type RecordingSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	frames int64
	closed bool
}

// OpenRecordingSink creates the output file for one recording session.
func OpenRecordingSink(dir, cameraID string) (*RecordingSink, error) {
	if err := os.MkdirAll(filepath.Join(dir, cameraID), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	path := filepath.Join(dir, cameraID, time.Now().Format("20060102-150405")+".vrf")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	log.Info().Str("camera_id", cameraID).Str("path", path).Msg("Recording sink opened")
	return &RecordingSink{
		path: path,
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

func (s *RecordingSink) Write(f *models.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("recording sink %s is closed", s.path)
	}

	var header [24]byte
	copy(header[0:4], recordingMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], uint32(f.Width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.Height))
	binary.LittleEndian.PutUint64(header[12:20], uint64(f.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(f.Data)))

	if _, err := s.w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := s.w.Write(f.Data); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	s.frames++
	return nil
}

// Close flushes buffered frames and releases the file handle.
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush recording: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close recording file: %w", err)
	}

	log.Info().Str("path", s.path).Int64("frames", s.frames).Msg("Recording sink closed")
	return nil
}

// FrameCount reports how many frames the sink accepted.
func (s *RecordingSink) FrameCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Path returns the output file path.
func (s *RecordingSink) Path() string {
	return s.path
}
