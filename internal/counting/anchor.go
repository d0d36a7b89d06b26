package counting

import (
	"fmt"
	"strings"

	"vehicle-counter-go/internal/models"
)

// AnchorPolicy selects which point of a detection box is tracked.
type AnchorPolicy int

const (
	AnchorCentroid AnchorPolicy = iota
	AnchorBottomRight
	AnchorBottomCenter
	AnchorCenterRight
)

func (a AnchorPolicy) String() string {
	switch a {
	case AnchorCentroid:
		return "centroid"
	case AnchorBottomRight:
		return "bottom-right"
	case AnchorBottomCenter:
		return "bottom-center"
	case AnchorCenterRight:
		return "center-right"
	default:
		return "unknown"
	}
}

// ParseAnchorPolicy accepts the canonical names plus the "buttom-*" spellings
// found in older camera configs. An empty string means centroid.
func ParseAnchorPolicy(s string) (AnchorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "centroid":
		return AnchorCentroid, nil
	case "bottom-right", "buttom-right":
		return AnchorBottomRight, nil
	case "bottom-center", "buttom-center":
		return AnchorBottomCenter, nil
	case "center-right":
		return AnchorCenterRight, nil
	}
	return AnchorCentroid, fmt.Errorf("unknown anchor policy %q", s)
}

// Anchor derives the tracked point of box.
func (a AnchorPolicy) Anchor(box models.BBox) models.Point {
	cx := (box.X1 + box.X2) / 2
	cy := (box.Y1 + box.Y2) / 2

	switch a {
	case AnchorBottomRight:
		return models.Point{X: box.X2, Y: box.Y2}
	case AnchorBottomCenter:
		return models.Point{X: cx, Y: box.Y2}
	case AnchorCenterRight:
		return models.Point{X: box.X2, Y: cy}
	default:
		return models.Point{X: cx, Y: cy}
	}
}
