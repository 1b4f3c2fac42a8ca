// Package camera owns the full lifecycle of every capture device: discovery,
// open with retries, the per-camera capture worker, stream publishing, and
// recording.
package camera

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/config"
	"vision-runtime-go/internal/helpers"
	"vision-runtime-go/internal/logging"
	"vision-runtime-go/internal/models"
	"vision-runtime-go/internal/services/capture"
	"vision-runtime-go/internal/store"
)

// Camera is one registered device and everything owned on its behalf.
type Camera struct {
	Config models.CameraConfig
	Device capture.Device
	Queue  *FrameQueue
	Sink   FrameSink

	// Statistics, written by the capture and dispatch workers
	FrameCount    int64
	ErrorCount    int64
	lastFrameNano int64

	statsMu sync.Mutex
	fps     float64
	latency time.Duration

	recMu     sync.Mutex
	recording bool
	recorder  *RecordingSink

	stop chan struct{}
}

// SetStats records the dispatch loop's achieved FPS and latency.
func (c *Camera) SetStats(fps float64, latency time.Duration) {
	c.statsMu.Lock()
	c.fps = fps
	c.latency = latency
	c.statsMu.Unlock()
}

// Stats returns the last recorded FPS and latency.
func (c *Camera) Stats() (float64, time.Duration) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.fps, c.latency
}

// LastFrameTime is when the capture worker last copied a frame out.
func (c *Camera) LastFrameTime() time.Time {
	n := atomic.LoadInt64(&c.lastFrameNano)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Recording reports whether the recording flag is set.
func (c *Camera) Recording() bool {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	return c.recording
}

// Registry discovers devices, opens them, and runs one capture worker per
// open camera.
type Registry struct {
	cfg   *config.Config
	store *store.Store

	mu      sync.RWMutex
	cameras map[string]*Camera
	onAdded []func(*Camera)

	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup

	// Seams for tests and bench mode
	enumerate  func() []capture.DeviceInfo
	openDevice func(info capture.DeviceInfo) capture.Device
	newSink    func(res models.Resolution) FrameSink
}

func NewRegistry(cfg *config.Config, st *store.Store) *Registry {
	return &Registry{
		cfg:     cfg,
		store:   st,
		cameras: make(map[string]*Camera),
		stop:    make(chan struct{}),
		enumerate: func() []capture.DeviceInfo {
			return capture.Enumerate(cfg.DeviceGlob)
		},
		openDevice: func(info capture.DeviceInfo) capture.Device {
			return capture.NewUVCDevice(info.ID, info.Path)
		},
		newSink: func(res models.Resolution) FrameSink {
			return NewSnapshotSink(res)
		},
	}
}

// SetEnumerator overrides device enumeration. Bench mode and tests.
func (r *Registry) SetEnumerator(fn func() []capture.DeviceInfo) {
	r.enumerate = fn
}

// SetDeviceOpener overrides device construction. Bench mode and tests.
func (r *Registry) SetDeviceOpener(fn func(info capture.DeviceInfo) capture.Device) {
	r.openDevice = fn
}

// SetSinkFactory overrides publish sink construction.
func (r *Registry) SetSinkFactory(fn func(res models.Resolution) FrameSink) {
	r.newSink = fn
}

// OnAdded registers a listener fired after a camera is opened and its
// capture worker is running. The dispatcher uses it to spawn the processing
// worker.
func (r *Registry) OnAdded(fn func(*Camera)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdded = append(r.onAdded, fn)
}

// StartDiscovery runs discovery once, then keeps polling for hot-plugged
// devices for the life of the process.
func (r *Registry) StartDiscovery() {
	r.Discover()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.DiscoveryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.Discover()
			}
		}
	}()
}

// Discover enumerates attached devices and registers any that are new. An
// already-registered id is left alone; a device that fails to open is
// retried on the next poll if it still advertises itself.
func (r *Registry) Discover() {
	for _, info := range r.enumerate() {
		r.mu.RLock()
		_, known := r.cameras[info.ID]
		r.mu.RUnlock()
		if known {
			continue
		}

		cfg, ok := r.store.Camera(info.ID)
		if !ok {
			cfg = r.defaultConfig(info)
			r.store.UpsertCamera(cfg)
			if err := r.store.Save(); err != nil {
				log.Error().Err(err).Str("camera_id", info.ID).Msg("Failed to persist new camera config")
			}
			log.Info().
				Str("camera_id", info.ID).
				Str("path", info.Path).
				Msg("New device discovered, default config synthesized")
		}
		cfg.DevicePath = info.Path

		if !r.AddCamera(info.ID, cfg, info.Path) {
			log.Warn().
				Str("camera_id", info.ID).
				Str("path", info.Path).
				Msg("Device did not come up, will retry on next discovery poll")
		}
	}
}

func (r *Registry) defaultConfig(info capture.DeviceInfo) models.CameraConfig {
	return models.CameraConfig{
		ID:              info.ID,
		Nickname:        info.Name,
		DevicePath:      info.Path,
		DefaultPipeline: 0,
		StreamRes: models.Resolution{
			Width:  r.cfg.DefaultStreamWidth,
			Height: r.cfg.DefaultStreamHeight,
			FPS:    r.cfg.DefaultStreamFPS,
		},
	}
}

// AddCamera opens the device with a bounded retry budget, creates the
// publish sink, and starts the capture worker. A device that never connects
// within the budget is non-fatal: the add is logged and reported false.
func (r *Registry) AddCamera(id string, cfg models.CameraConfig, devicePath string) bool {
	dev := r.openDevice(capture.DeviceInfo{ID: id, Path: devicePath})

	var err error
	for attempt := 1; attempt <= r.cfg.OpenRetries; attempt++ {
		if err = dev.Connect(); err == nil {
			break
		}
		log.Warn().
			Err(err).
			Str("camera_id", id).
			Int("attempt", attempt).
			Int("budget", r.cfg.OpenRetries).
			Msg("Device open failed, backing off")
		select {
		case <-r.stop:
			return false
		case <-time.After(r.cfg.OpenRetryBackoff):
		}
	}
	if !dev.IsConnected() {
		log.Error().
			Str("camera_id", id).
			Str("path", devicePath).
			Int("budget", r.cfg.OpenRetries).
			Msg("Device never became connected within retry budget")
		return false
	}

	streamRes := r.StreamRes(cfg)
	dev.SetVideoMode(streamRes.FPS, streamRes.Width, streamRes.Height)

	cam := &Camera{
		Config: cfg,
		Device: dev,
		Queue:  NewFrameQueue(r.cfg.FrameQueueSize),
		Sink:   r.newSink(streamRes),
		stop:   make(chan struct{}),
	}

	r.mu.Lock()
	r.cameras[id] = cam
	listeners := make([]func(*Camera), len(r.onAdded))
	copy(listeners, r.onAdded)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.captureWorker(cam)

	log.Info().
		Str("camera_id", id).
		Str("nickname", cfg.Nickname).
		Str("stream_res", streamRes.String()).
		Msg("Camera added")

	for _, fn := range listeners {
		fn(cam)
	}
	return true
}

// StreamRes resolves the stream resolution from persisted config, clamped to
// the configured default when absent.
func (r *Registry) StreamRes(cfg models.CameraConfig) models.Resolution {
	res := cfg.StreamRes
	if res.Width <= 0 || res.Height <= 0 {
		res.Width = r.cfg.DefaultStreamWidth
		res.Height = r.cfg.DefaultStreamHeight
	}
	if res.FPS <= 0 {
		res.FPS = r.cfg.DefaultStreamFPS
	}
	return res
}

// captureWorker runs the tight capture loop for one camera: grab, copy into
// the bounded queue, then sleep half a native frame interval so we never
// spin faster than the hardware produces frames.
func (r *Registry) captureWorker(cam *Camera) {
	defer r.wg.Done()

	clog := logging.ForCamera("capture", cam.Config.ID)
	defer func() {
		if rec := recover(); rec != nil {
			clog.Error().Interface("panic", rec).Msg("Capture worker panic recovered")
		}
	}()

	clog.Debug().Msg("Capture worker started")

	for {
		select {
		case <-r.stop:
			return
		case <-cam.stop:
			return
		default:
		}

		if frame, ok := cam.Device.GrabFrame(); ok {
			atomic.AddInt64(&cam.FrameCount, 1)
			atomic.StoreInt64(&cam.lastFrameNano, frame.Timestamp.UnixNano())
			cam.Queue.Push(frame)
		}

		fps := cam.Device.MaxFPS()
		if fps <= 0 {
			fps = 30
		}
		halfInterval := time.Second / time.Duration(2*fps)
		select {
		case <-r.stop:
			return
		case <-cam.stop:
			return
		case <-time.After(halfInterval):
		}
	}
}

// PublishFrame scales the frame to the camera's stream resolution, hands it
// to the publish sink, and tees it into the recording sink while recording
// is on.
func (r *Registry) PublishFrame(frame *models.Frame, cameraID string) error {
	cam, ok := r.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %s is not registered", cameraID)
	}

	res := cam.Sink.Resolution()
	scaled, err := helpers.ResizeFrame(frame, res.Width, res.Height)
	if err != nil {
		atomic.AddInt64(&cam.ErrorCount, 1)
		return fmt.Errorf("failed to scale frame for camera %s: %w", cameraID, err)
	}

	if err := cam.Sink.Write(scaled); err != nil {
		atomic.AddInt64(&cam.ErrorCount, 1)
		return fmt.Errorf("failed to publish frame for camera %s: %w", cameraID, err)
	}

	cam.recMu.Lock()
	defer cam.recMu.Unlock()
	if cam.recording {
		if cam.recorder == nil {
			rec, err := OpenRecordingSink(r.cfg.RecordingDir, cameraID)
			if err != nil {
				log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to open recording sink")
				return nil
			}
			cam.recorder = rec
		}
		if err := cam.recorder.Write(scaled); err != nil {
			log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to write recording frame")
		}
	}
	return nil
}

// SetRecording flips the recording flag. The sink is created lazily on the
// first published frame after the on transition; the off transition flushes
// and releases it.
func (r *Registry) SetRecording(cameraID string, on bool) error {
	cam, ok := r.Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %s is not registered", cameraID)
	}

	cam.recMu.Lock()
	defer cam.recMu.Unlock()

	if cam.recording == on {
		return nil
	}
	cam.recording = on

	if !on && cam.recorder != nil {
		if err := cam.recorder.Close(); err != nil {
			log.Error().Err(err).Str("camera_id", cameraID).Msg("Failed to close recording sink")
		}
		cam.recorder = nil
	}

	log.Info().Str("camera_id", cameraID).Bool("recording", on).Msg("Recording state changed")
	return nil
}

// Camera looks up a registered camera by id.
func (r *Registry) Camera(id string) (*Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cam, ok := r.cameras[id]
	return cam, ok
}

// Cameras snapshots the registered camera set.
func (r *Registry) Cameras() []*Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		out = append(out, cam)
	}
	return out
}

// Cleanup stops the discovery worker and every capture worker, flushes and
// releases all recording sinks, and closes all devices.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stop)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cam := range r.cameras {
		cam.recMu.Lock()
		if cam.recorder != nil {
			if err := cam.recorder.Close(); err != nil {
				log.Error().Err(err).Str("camera_id", id).Msg("Failed to close recording sink during cleanup")
			}
			cam.recorder = nil
		}
		cam.recording = false
		cam.recMu.Unlock()

		if err := cam.Device.Close(); err != nil {
			log.Error().Err(err).Str("camera_id", id).Msg("Failed to close device during cleanup")
		}
	}

	log.Info().Int("cameras", len(r.cameras)).Msg("Camera registry cleaned up")
}
