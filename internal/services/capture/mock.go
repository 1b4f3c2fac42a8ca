package capture

import (
	"fmt"
	"sync"
	"time"

	"vision-runtime-go/internal/models"
)

// MockDevice is an in-memory Device used by tests and bench mode.
type MockDevice struct {
	ID         string
	DevicePath string

	mu           sync.Mutex
	connected    bool
	failConnects int // remaining Connect calls that fail
	properties   map[string]float64
	propertyLog  []string
	pending      []*models.Frame
	mode         models.Resolution
	supported    []models.Resolution
	frameSeq     int64
}

func NewMockDevice(id string) *MockDevice {
	return &MockDevice{
		ID:         id,
		DevicePath: "/dev/mock/" + id,
		properties: make(map[string]float64),
		mode:       models.Resolution{Width: 640, Height: 480, FPS: 30},
		supported: []models.Resolution{
			{Width: 320, Height: 240, FPS: 30},
			{Width: 640, Height: 480, FPS: 30},
			{Width: 1280, Height: 720, FPS: 30},
		},
	}
}

// SetSupportedResolutions replaces the advertised mode table.
func (d *MockDevice) SetSupportedResolutions(modes []models.Resolution) {
	d.mu.Lock()
	d.supported = modes
	d.mu.Unlock()
}

// FailConnects makes the next n Connect calls fail.
func (d *MockDevice) FailConnects(n int) {
	d.mu.Lock()
	d.failConnects = n
	d.mu.Unlock()
}

// InjectFrame queues a frame for the next GrabFrame call.
func (d *MockDevice) InjectFrame(f *models.Frame) {
	d.mu.Lock()
	d.pending = append(d.pending, f)
	d.mu.Unlock()
}

// PropertyWrites lists SetProperty calls in order, as "name=value".
func (d *MockDevice) PropertyWrites() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.propertyLog))
	copy(out, d.propertyLog)
	return out
}

func (d *MockDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failConnects > 0 {
		d.failConnects--
		return fmt.Errorf("mock device %s refused to connect", d.ID)
	}
	d.connected = true
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *MockDevice) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *MockDevice) GetProperty(name string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.properties[name]
	return v, ok
}

func (d *MockDevice) SetProperty(name string, value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.properties[name] = value
	d.propertyLog = append(d.propertyLog, fmt.Sprintf("%s=%v", name, value))
	return nil
}

func (d *MockDevice) SetVideoMode(fps, width, height int) models.Resolution {
	mode, _ := NegotiateMode(d.supported, fps, width, height)
	d.mu.Lock()
	d.mode = mode
	d.mu.Unlock()
	return mode
}

func (d *MockDevice) SupportedResolutions() []models.Resolution {
	return d.supported
}

func (d *MockDevice) GrabFrame() (*models.Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected || len(d.pending) == 0 {
		return nil, false
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	d.frameSeq++
	f.Number = d.frameSeq
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	return f, true
}

func (d *MockDevice) MaxFPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode.FPS
}

func (d *MockDevice) Path() string {
	return d.DevicePath
}
