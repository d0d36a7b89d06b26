package helpers

import (
	"fmt"
	"time"
)

// OverlayTimeLayout is the capture time burned into archived frames.
const OverlayTimeLayout = "2006-01-02 15:04:05"

// FPSLabel formats the processing rate shown on the overlay.
func FPSLabel(fps float64) string {
	if fps <= 0 {
		return "FPS: --.-"
	}
	return fmt.Sprintf("FPS: %.1f", fps)
}

// TimestampLabel formats the capture time of a frame. Frames without a
// timestamp get an empty label.
func TimestampLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(OverlayTimeLayout)
}
