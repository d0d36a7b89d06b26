package frameprocessing

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/counting"
	"vehicle-counter-go/internal/helpers"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/frameprocessing/solutions"
)

// palette is indexed by class id.
var palette = []color.RGBA{
	{R: 0, G: 140, B: 255, A: 255},
	{R: 255, G: 56, B: 56, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
}

// Annotator draws counting regions, tracked boxes, trails and per-counter
// totals onto a copy of each frame before it is archived.
type Annotator struct {
	cameraID    string
	showFPS     bool
	showTracks  bool
	regionColor color.RGBA
}

func NewAnnotator(cfg *config.Config, cameraID string) *Annotator {
	a := &Annotator{
		cameraID:    cameraID,
		showFPS:     cfg.ShowFPS,
		showTracks:  cfg.ShowTracks,
		regionColor: color.RGBA{R: 255, G: 0, B: 255, A: 255},
	}
	if cfg.RegionColor != "" {
		if c, err := parseHexColor(cfg.RegionColor); err == nil {
			a.regionColor = c
		} else {
			log.Warn().Err(err).Str("camera_id", cameraID).Msg("Invalid REGION_COLOR, using default")
		}
	}
	return a
}

// Annotate returns an annotated copy of frame; frame itself is not modified.
func (a *Annotator) Annotate(frame *models.RawFrame, result *models.DetectionResult, counters []*counting.RegionCounter, fps float64) *models.RawFrame {
	out := frame.Clone()

	mat, err := gocv.NewMatFromBytes(out.Height, out.Width, gocv.MatTypeCV8UC3, out.Data)
	if err != nil {
		log.Error().Err(err).Str("camera_id", a.cameraID).Msg("Failed to create Mat from frame data")
		return frame
	}
	defer mat.Close()

	for _, rc := range counters {
		solutions.DrawRegion(&mat, toPoints(rc.Region().Points()), a.regionColor, 3)
	}

	if result != nil {
		var history *counting.TrackHistory
		if len(counters) > 0 {
			history = counters[0].History()
		}
		for _, det := range result.Detections {
			a.drawDetection(&mat, det, result, history)
		}
	}

	counts := make([]models.CounterCounts, len(counters))
	for i, rc := range counters {
		counts[i] = rc.Counts()
	}
	y := 35
	solutions.DrawCounterPanel(&mat, counts, &y)

	if a.showFPS {
		solutions.DrawTextEnhanced(&mat, helpers.FPSLabel(fps), mat.Cols()-140, 35, solutions.White, 0.6, 2)
	}
	if ts := helpers.TimestampLabel(frame.Timestamp); ts != "" {
		solutions.DrawTextEnhanced(&mat, ts, mat.Cols()-220, 65, solutions.White, 0.6, 2)
	}

	out.Data = mat.ToBytes()
	return out
}

func (a *Annotator) drawDetection(mat *gocv.Mat, det models.Detection, result *models.DetectionResult, history *counting.TrackHistory) {
	c := palette[det.ClassID%len(palette)]

	label := result.ClassName(det.ClassID)
	if label == "" {
		label = det.ClassName
	}
	if det.HasTrack() {
		label = fmt.Sprintf("%s #%d", label, *det.TrackID)
	}

	rect := image.Rect(int(det.Box.X1), int(det.Box.Y1), int(det.Box.X2), int(det.Box.Y2))
	solutions.DrawBox(mat, rect, label, c)

	if a.showTracks && history != nil && det.HasTrack() {
		solutions.DrawTrack(mat, toPoints(history.Points(*det.TrackID)), c)
	}
}

func toPoints(pts []models.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(int(p.X), int(p.Y))
	}
	return out
}

// parseHexColor converts "#RRGGBB" to color.RGBA.
func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color length: %s", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
