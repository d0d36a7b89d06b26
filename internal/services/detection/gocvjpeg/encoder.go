// Package gocvjpeg encodes frames for the detector with OpenCV.
package gocvjpeg

import (
	"fmt"

	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
)

type Encoder struct{}

func New() *Encoder { return &Encoder{} }

// Encode compresses the BGR frame to JPEG at quality (1-100, default 90).
func (Encoder) Encode(frame *models.RawFrame, quality int) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if quality < 1 || quality > 100 {
		quality = 90
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode BGR as JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	jpg := make([]byte, len(b))
	copy(jpg, b)
	return jpg, nil
}
