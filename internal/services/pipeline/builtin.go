package pipeline

import (
	"time"

	"vision-runtime-go/internal/models"
)

func init() {
	Register(Factory{
		Type: "passthrough",
		New: func(s *models.PipelineSettings) Pipeline {
			return &passthrough{}
		},
	})

	Register(Factory{
		Type: "threshold",
		Schema: models.SettingsSchema{
			{Key: "threshold", Kind: models.KindInt, Min: 0, Max: 255, Default: 128},
			{Key: "brightness", Kind: models.KindInt, Min: 0, Max: 100, Default: 50, DeviceProperty: "brightness"},
			{Key: "exposure", Kind: models.KindInt, Min: 0, Max: 100, Default: 50, DeviceProperty: "exposure"},
		},
		New: func(s *models.PipelineSettings) Pipeline {
			return &threshold{settings: s}
		},
	})

	Register(Factory{
		Type: "edges",
		Schema: models.SettingsSchema{
			{Key: "kernel", Kind: models.KindInt, Min: 1, Max: 15, Default: 3},
		},
		New: func(s *models.PipelineSettings) Pipeline {
			return &edges{settings: s}
		},
	})

	// Interactive calibration capture is driven from the bench UI and is not
	// safe to bind from the dashboard; kept out of the loaded table.
	Register(Factory{
		Type:     "calibration",
		Disabled: true,
		New: func(s *models.PipelineSettings) Pipeline {
			return &passthrough{}
		},
	})
}

// passthrough republishes the input frame untouched.
type passthrough struct{}

func (p *passthrough) ProcessFrame(frame *models.Frame, _ time.Time) (models.FrameResult, error) {
	return models.SingleResult(frame), nil
}

// threshold produces a two-step result: grayscale, then a binary mask cut at
// the configured level.
type threshold struct {
	settings *models.PipelineSettings
	pub      ResultPublisher
}

func (t *threshold) SetResultPublisher(pub ResultPublisher) {
	t.pub = pub
}

func (t *threshold) ProcessFrame(frame *models.Frame, _ time.Time) (models.FrameResult, error) {
	level := byte(t.settings.GetInt("threshold"))

	gray := frame.Clone()
	mask := frame.Clone()
	lit := 0
	for i := 0; i+2 < len(frame.Data); i += 3 {
		b, g, r := frame.Data[i], frame.Data[i+1], frame.Data[i+2]
		// integer BT.601 luma
		y := byte((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
		gray.Data[i], gray.Data[i+1], gray.Data[i+2] = y, y, y

		var m byte
		if y >= level {
			m = 255
			lit++
		}
		mask.Data[i], mask.Data[i+1], mask.Data[i+2] = m, m, m
	}

	if t.pub != nil {
		t.pub.PublishResult("lit_pixels", lit)
	}
	return models.ManyResult(gray, mask), nil
}

// edges produces a three-step result: box blur, horizontal gradient, and a
// thresholded edge map of the gradient.
type edges struct {
	settings *models.PipelineSettings
}

func (e *edges) ProcessFrame(frame *models.Frame, _ time.Time) (models.FrameResult, error) {
	k := e.settings.GetInt("kernel")
	if k < 1 {
		k = 1
	}

	blur := boxBlur(frame, k)
	grad := gradientX(blur)
	edge := blur.Clone()
	for i := range grad.Data {
		if grad.Data[i] > 64 {
			edge.Data[i] = 255
		} else {
			edge.Data[i] = 0
		}
	}
	return models.ManyResult(blur, grad, edge), nil
}

func boxBlur(f *models.Frame, radius int) *models.Frame {
	out := f.Clone()
	row := f.Width * 3
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			for c := 0; c < 3; c++ {
				sum, n := 0, 0
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= f.Width {
						continue
					}
					sum += int(f.Data[y*row+xx*3+c])
					n++
				}
				out.Data[y*row+x*3+c] = byte(sum / n)
			}
		}
	}
	return out
}

func gradientX(f *models.Frame) *models.Frame {
	out := f.Clone()
	row := f.Width * 3
	for y := 0; y < f.Height; y++ {
		for x := 1; x < f.Width; x++ {
			for c := 0; c < 3; c++ {
				d := int(f.Data[y*row+x*3+c]) - int(f.Data[y*row+(x-1)*3+c])
				if d < 0 {
					d = -d
				}
				out.Data[y*row+x*3+c] = byte(d)
			}
		}
	}
	return out
}
