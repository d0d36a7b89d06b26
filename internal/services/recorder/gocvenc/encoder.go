// Package gocvenc writes archive files with OpenCV's VideoWriter.
package gocvenc

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
)

type Encoder struct {
	fourcc string
	writer *gocv.VideoWriter
	width  int
	height int
}

func New(fourcc string) *Encoder {
	if fourcc == "" {
		fourcc = "mp4v"
	}
	return &Encoder{fourcc: fourcc}
}

func (e *Encoder) Open(path string, width, height int, fps float64) error {
	w, err := gocv.VideoWriterFile(path, e.fourcc, fps, width, height, true)
	if err != nil {
		return err
	}
	if !w.IsOpened() {
		w.Close()
		return fmt.Errorf("video writer for %s did not open (codec %s)", path, e.fourcc)
	}
	e.writer = w
	e.width = width
	e.height = height
	return nil
}

// Write appends frame, resizing it when the source resolution changed
// since the file was opened.
func (e *Encoder) Write(frame *models.RawFrame) error {
	if e.writer == nil {
		return fmt.Errorf("video writer is not open")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer mat.Close()

	if frame.Width != e.width || frame.Height != e.height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(e.width, e.height), 0, 0, gocv.InterpolationLinear)
		return e.writer.Write(resized)
	}
	return e.writer.Write(mat)
}

func (e *Encoder) Close() error {
	if e.writer == nil {
		return nil
	}
	err := e.writer.Close()
	e.writer = nil
	return err
}
