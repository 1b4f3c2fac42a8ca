package helpers

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"vision-runtime-go/internal/models"
)

// ResizeFrame scales a BGR frame to the given geometry. Returns the input
// unchanged when it already matches.
func ResizeFrame(f *models.Frame, width, height int) (*models.Frame, error) {
	if f.Width == width && f.Height == height {
		return f, nil
	}

	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat from frame: %w", err)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	return &models.Frame{
		CameraID:  f.CameraID,
		Data:      resized.ToBytes(),
		Width:     width,
		Height:    height,
		Timestamp: f.Timestamp,
		Number:    f.Number,
	}, nil
}

// EncodeJPEG compresses a BGR frame for the snapshot endpoint.
func EncodeJPEG(f *models.Frame, quality int) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat from frame: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
