package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vision-runtime-go/internal/models"
)

// propertyIDs maps setting names to OpenCV capture properties.
var propertyIDs = map[string]gocv.VideoCaptureProperties{
	"brightness":    gocv.VideoCaptureBrightness,
	"contrast":      gocv.VideoCaptureContrast,
	"saturation":    gocv.VideoCaptureSaturation,
	"gain":          gocv.VideoCaptureGain,
	"exposure":      gocv.VideoCaptureExposure,
	"auto_exposure": gocv.VideoCaptureAutoExposure,
}

// UVCDevice drives a V4L2 webcam through OpenCV VideoCapture.
type UVCDevice struct {
	id   string
	path string

	mu        sync.Mutex // serializes all hardware buffer access
	cap       *gocv.VideoCapture
	img       gocv.Mat
	connected bool
	mode      models.Resolution
	supported []models.Resolution
	frameSeq  int64
}

// NewUVCDevice wraps the device node at path. Connect opens the hardware.
func NewUVCDevice(id, path string) *UVCDevice {
	return &UVCDevice{
		id:   id,
		path: path,
		// UVC mode enumeration needs a V4L2 ioctl round-trip that OpenCV
		// does not expose; advertise the ubiquitous UVC ladder instead.
		supported: []models.Resolution{
			{Width: 320, Height: 240, FPS: 30},
			{Width: 640, Height: 480, FPS: 30},
			{Width: 1280, Height: 720, FPS: 30},
			{Width: 1920, Height: 1080, FPS: 30},
		},
	}
}

func (d *UVCDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(d.path)
	if err != nil {
		return fmt.Errorf("failed to open capture device %s: %w", d.path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("capture device %s did not open", d.path)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1)

	d.cap = cap
	d.img = gocv.NewMat()
	d.connected = true
	d.mode = models.Resolution{
		Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    int(cap.Get(gocv.VideoCaptureFPS)),
	}
	if d.mode.FPS <= 0 {
		d.mode.FPS = 30
	}

	log.Info().
		Str("device_id", d.id).
		Str("path", d.path).
		Str("mode", d.mode.String()).
		Msg("Capture device opened")
	return nil
}

func (d *UVCDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false
	d.img.Close()
	if err := d.cap.Close(); err != nil {
		return fmt.Errorf("failed to close capture device %s: %w", d.path, err)
	}
	log.Info().Str("device_id", d.id).Str("path", d.path).Msg("Capture device closed")
	return nil
}

func (d *UVCDevice) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *UVCDevice) GetProperty(name string) (float64, bool) {
	prop, ok := propertyIDs[name]
	if !ok {
		return 0, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0, false
	}
	return d.cap.Get(prop), true
}

func (d *UVCDevice) SetProperty(name string, value float64) error {
	prop, ok := propertyIDs[name]
	if !ok {
		return fmt.Errorf("device %s has no property %q", d.id, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return fmt.Errorf("device %s is not connected", d.id)
	}
	d.cap.Set(prop, value)
	return nil
}

func (d *UVCDevice) SetVideoMode(fps, width, height int) models.Resolution {
	mode, exact := NegotiateMode(d.supported, fps, width, height)
	if !exact {
		log.Warn().
			Str("device_id", d.id).
			Int("fps", fps).
			Int("width", width).
			Int("height", height).
			Str("fallback", mode.String()).
			Msg("Unsupported video mode requested, falling back to largest supported mode")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		d.cap.Set(gocv.VideoCaptureFrameWidth, float64(mode.Width))
		d.cap.Set(gocv.VideoCaptureFrameHeight, float64(mode.Height))
		d.cap.Set(gocv.VideoCaptureFPS, float64(mode.FPS))
	}
	d.mode = mode
	return mode
}

func (d *UVCDevice) SupportedResolutions() []models.Resolution {
	out := make([]models.Resolution, len(d.supported))
	copy(out, d.supported)
	return out
}

// GrabFrame reads one frame from the hardware buffer. The per-device lock
// makes the copy-out step exclusive; the returned frame is a fresh buffer.
func (d *UVCDevice) GrabFrame() (*models.Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil, false
	}
	if ok := d.cap.Read(&d.img); !ok || d.img.Empty() {
		return nil, false
	}

	d.frameSeq++
	return &models.Frame{
		CameraID:  d.id,
		Data:      d.img.ToBytes(),
		Width:     d.img.Cols(),
		Height:    d.img.Rows(),
		Timestamp: time.Now(),
		Number:    d.frameSeq,
	}, true
}

func (d *UVCDevice) MaxFPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode.FPS <= 0 {
		return 30
	}
	return d.mode.FPS
}

func (d *UVCDevice) Path() string {
	return d.path
}
