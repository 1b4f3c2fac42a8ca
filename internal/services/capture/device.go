package capture

import (
	"vision-runtime-go/internal/models"
)

// Device wraps one physical camera. Implementations must serialize their own
// hardware access; GrabFrame is non-blocking beyond the device's own fetch.
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool

	// GetProperty reads a native device property. The second return is false
	// when the device does not expose the property.
	GetProperty(name string) (float64, bool)
	SetProperty(name string, value float64) error

	// SetVideoMode requests a mode and returns the mode actually applied.
	// An unsupported request falls back to the largest supported mode.
	SetVideoMode(fps, width, height int) models.Resolution
	SupportedResolutions() []models.Resolution

	// GrabFrame fetches the newest frame if one is ready.
	GrabFrame() (*models.Frame, bool)

	// MaxFPS is the native frame rate of the current mode.
	MaxFPS() int

	Path() string
}

// DeviceInfo describes one enumerated device before it is opened.
type DeviceInfo struct {
	ID   string
	Name string
	Path string
}

// NegotiateMode resolves a requested video mode against the supported set.
// An exact match is honored; anything else falls back to the supported mode
// with the largest pixel area. The bool reports whether the request matched.
func NegotiateMode(supported []models.Resolution, fps, width, height int) (models.Resolution, bool) {
	var largest models.Resolution
	for _, res := range supported {
		if res.Width == width && res.Height == height && res.FPS == fps {
			return res, true
		}
		if res.Area() > largest.Area() {
			largest = res
		}
	}
	return largest, false
}
