package dispatch

import (
	"math"
	"sync"
	"time"

	"vision-runtime-go/internal/services/camera"
	"vision-runtime-go/internal/services/syncbus"
)

// metricsSample is the latest loop measurement for one camera.
type metricsSample struct {
	fps            float64
	captureLatency time.Duration
	processLatency time.Duration
}

// MetricsReporter drives the metrics worker: dispatch workers hand it their
// loop measurements and the worker flushes the freshest one per camera to
// the sync bus once per interval, so a 30 FPS loop does not turn into 30 bus
// writes a second.
type MetricsReporter struct {
	bridge   *syncbus.Bridge
	interval time.Duration

	mu      sync.Mutex
	pending map[string]metricsSample
}

func NewMetricsReporter(bridge *syncbus.Bridge, interval time.Duration) *MetricsReporter {
	return &MetricsReporter{
		bridge:   bridge,
		interval: interval,
		pending:  make(map[string]metricsSample),
	}
}

// Report records the latest measurement for one camera. Samples arriving
// between two flushes overwrite each other; only the freshest goes out.
func (m *MetricsReporter) Report(cameraID string, cam *camera.Camera, captureLatency, processLatency time.Duration) {
	fps, _ := cam.Stats()
	m.mu.Lock()
	m.pending[cameraID] = metricsSample{
		fps:            fps,
		captureLatency: captureLatency,
		processLatency: processLatency,
	}
	m.mu.Unlock()
}

// run is the metrics worker, one per process, alive until shutdown.
func (m *MetricsReporter) run(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.publishPending()
		}
	}
}

// publishPending flushes every camera's pending sample to the bus. Exposed
// as a method so tests can drive flushes without the ticker.
func (m *MetricsReporter) publishPending() {
	m.mu.Lock()
	samples := m.pending
	m.pending = make(map[string]metricsSample)
	m.mu.Unlock()

	for id, s := range samples {
		m.bridge.Publish(syncbus.Key("camera", id, "metrics", "fps"), math.Round(s.fps*10)/10)
		m.bridge.Publish(syncbus.Key("camera", id, "metrics", "capture_latency_ms"), float64(s.captureLatency.Microseconds())/1000.0)
		m.bridge.Publish(syncbus.Key("camera", id, "metrics", "processing_latency_ms"), float64(s.processLatency.Microseconds())/1000.0)
	}
}
