package models

import (
	"fmt"
	"time"
)

// Frame is a single captured image in BGR24 layout plus its capture timestamp.
// Frames are value-copied at the capture boundary; once a frame has been
// cloned into a queue it is never written again.
type Frame struct {
	CameraID  string
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
	Number    int64
}

const bytesPerPixel = 3 // BGR24

// NewFrame allocates a zeroed frame for the given geometry.
func NewFrame(cameraID string, width, height int) *Frame {
	return &Frame{
		CameraID:  cameraID,
		Data:      make([]byte, width*height*bytesPerPixel),
		Width:     width,
		Height:    height,
		Timestamp: time.Now(),
	}
}

// Clone deep-copies the frame so the receiver can keep mutating its buffer.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{
		CameraID:  f.CameraID,
		Data:      data,
		Width:     f.Width,
		Height:    f.Height,
		Timestamp: f.Timestamp,
		Number:    f.Number,
	}
}

// At returns the BGR triple at pixel (x, y).
func (f *Frame) At(x, y int) (b, g, r byte) {
	i := (y*f.Width + x) * bytesPerPixel
	return f.Data[i], f.Data[i+1], f.Data[i+2]
}

// Rotate90 returns a new frame rotated clockwise by turns quarter-turns.
// turns is taken modulo 4; 0 returns a clone.
func (f *Frame) Rotate90(turns int) *Frame {
	turns = ((turns % 4) + 4) % 4
	if turns == 0 {
		return f.Clone()
	}

	src := f
	for ; turns > 0; turns-- {
		dst := &Frame{
			CameraID:  src.CameraID,
			Data:      make([]byte, len(src.Data)),
			Width:     src.Height,
			Height:    src.Width,
			Timestamp: src.Timestamp,
			Number:    src.Number,
		}
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				si := (y*src.Width + x) * bytesPerPixel
				// (x, y) -> (h-1-y, x) for a clockwise quarter turn
				di := (x*dst.Width + (src.Height - 1 - y)) * bytesPerPixel
				copy(dst.Data[di:di+bytesPerPixel], src.Data[si:si+bytesPerPixel])
			}
		}
		src = dst
	}
	return src
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame %d %dx%d camera=%s", f.Number, f.Width, f.Height, f.CameraID)
}
