package helpers

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

func solidFrame(w, h int, b, g, r byte) *models.RawFrame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = b, g, r
	}
	return &models.RawFrame{Data: data, Width: w, Height: h, Format: "BGR"}
}

func TestExpandBox(t *testing.T) {
	tests := []struct {
		name   string
		box    models.BBox
		margin float64
		want   image.Rectangle
	}{
		{"half margin", models.BBox{X1: 100, Y1: 100, X2: 140, Y2: 120}, 0.5, image.Rect(80, 90, 160, 130)},
		{"clamped to frame", models.BBox{X1: 5, Y1: 5, X2: 45, Y2: 25}, 0.5, image.Rect(0, 0, 65, 35)},
		{"margin truncates", models.BBox{X1: 10, Y1: 10, X2: 13, Y2: 13}, 0.5, image.Rect(9, 9, 14, 14)},
		{"zero margin", models.BBox{X1: 10.7, Y1: 10.2, X2: 20.9, Y2: 30.1}, 0, image.Rect(10, 10, 20, 30)},
		{"outside frame", models.BBox{X1: 300, Y1: 300, X2: 320, Y2: 320}, 0.5, image.Rect(290, 290, 290, 290)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExpandBox(tt.box, tt.margin, 200, 200))
		})
	}
}

func TestCropWithMarginConvertsBGR(t *testing.T) {
	frame := solidFrame(50, 40, 10, 20, 30)

	img, err := CropWithMargin(frame, models.BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, 0.5)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 20, 20), img.Bounds())

	r, g, b, a := img.At(3, 3).RGBA()
	require.Equal(t, []uint32{30, 20, 10, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestCropWithMarginEmpty(t *testing.T) {
	frame := solidFrame(50, 40, 0, 0, 0)
	_, err := CropWithMargin(frame, models.BBox{X1: 100, Y1: 100, X2: 120, Y2: 120}, 0.5)
	require.ErrorIs(t, err, ErrEmptyCrop)
}

func TestFrameJPEGRejectsShortData(t *testing.T) {
	frame := &models.RawFrame{Data: make([]byte, 10), Width: 10, Height: 10}
	_, err := FrameJPEG(frame, 80)
	require.Error(t, err)
}

func TestSnapshotJPEGDecodes(t *testing.T) {
	frame := solidFrame(64, 48, 0, 0, 255)
	data, err := SnapshotJPEG(frame, models.BBox{X1: 20, Y1: 20, X2: 30, Y2: 30}, 0.5, 0)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 20, img.Bounds().Dx())
	require.Equal(t, 20, img.Bounds().Dy())
}

func TestScaledSize(t *testing.T) {
	w, h := ScaledSize(1920, 1080, 1280)
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)

	w, h = ScaledSize(640, 480, 0)
	require.Equal(t, 640, w)
	require.Equal(t, 480, h)
}
