package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"vehicle-counter-go/internal/models"
)

var ErrEmptyCrop = errors.New("crop region is empty")

// ExpandBox grows box by margin (a fraction of its width/height) on every
// side and clamps the result to a width x height frame. Margins truncate
// toward zero before they are applied.
func ExpandBox(box models.BBox, margin float64, width, height int) image.Rectangle {
	mx := int(margin * box.Width())
	my := int(margin * box.Height())

	x0 := max(0, int(box.X1)-mx)
	y0 := max(0, int(box.Y1)-my)
	x1 := min(width, int(box.X2)+mx)
	y1 := min(height, int(box.Y2)+my)

	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rect(x0, y0, x1, y1)
}

// bgrToRGBA copies the rect region of a packed BGR frame into a new RGBA image.
func bgrToRGBA(frame *models.RawFrame, rect image.Rectangle) (*image.RGBA, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", frame.Width, frame.Height)
	}
	if need := frame.Width * frame.Height * 3; len(frame.Data) < need {
		return nil, fmt.Errorf("frame data too short: have %d bytes, need %d", len(frame.Data), need)
	}

	rect = rect.Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}

	img := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	stride := frame.Width * 3
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		src := frame.Data[y*stride+rect.Min.X*3 : y*stride+rect.Max.X*3]
		dst := img.Pix[(y-rect.Min.Y)*img.Stride:]
		for x := 0; x < rect.Dx(); x++ {
			dst[x*4+0] = src[x*3+2]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+0]
			dst[x*4+3] = 0xff
		}
	}
	return img, nil
}

// CropWithMargin returns the detection box area of frame expanded by margin
// on each side and clamped to the frame.
func CropWithMargin(frame *models.RawFrame, box models.BBox, margin float64) (*image.RGBA, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	return bgrToRGBA(frame, ExpandBox(box, margin, frame.Width, frame.Height))
}

// FrameToImage converts a whole BGR frame.
func FrameToImage(frame *models.RawFrame) (*image.RGBA, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	return bgrToRGBA(frame, image.Rect(0, 0, frame.Width, frame.Height))
}

// EncodeJPEG encodes img with the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotJPEG crops box with margin and encodes it.
func SnapshotJPEG(frame *models.RawFrame, box models.BBox, margin float64, quality int) ([]byte, error) {
	img, err := CropWithMargin(frame, box, margin)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, quality)
}

// FrameJPEG encodes a whole frame.
func FrameJPEG(frame *models.RawFrame, quality int) ([]byte, error) {
	img, err := FrameToImage(frame)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, quality)
}

// ScaledSize returns the dimensions of a width x height frame resized to
// targetWidth, keeping the aspect ratio. A non-positive target keeps the size.
func ScaledSize(width, height, targetWidth int) (int, int) {
	if targetWidth <= 0 || width <= 0 || height <= 0 || width == targetWidth {
		return width, height
	}
	h := int(float64(height) * float64(targetWidth) / float64(width))
	return targetWidth, max(1, h)
}
