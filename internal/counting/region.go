package counting

import (
	"errors"
	"fmt"
	"math"

	"vehicle-counter-go/internal/models"
)

var ErrInvalidRegion = errors.New("invalid region")

// Region is an immutable counting line (2 points) or polygon (3+ points).
type Region struct {
	points   []models.Point
	centroid models.Point
}

// DefaultRegion is the line used when a counter is configured without points.
func DefaultRegion() Region {
	r, _ := NewRegion([]models.Point{{X: 20, Y: 400}, {X: 1260, Y: 400}})
	return r
}

// NewRegion validates pts and builds a region. Fewer than two points is an error.
func NewRegion(pts []models.Point) (Region, error) {
	if len(pts) < 2 {
		return Region{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidRegion, len(pts))
	}
	for i, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return Region{}, fmt.Errorf("%w: point %d is not finite", ErrInvalidRegion, i)
		}
	}
	if len(pts) == 2 && pts[0] == pts[1] {
		return Region{}, fmt.Errorf("%w: line endpoints coincide", ErrInvalidRegion)
	}

	cp := make([]models.Point, len(pts))
	copy(cp, pts)

	r := Region{points: cp}
	if len(cp) >= 3 {
		c, ok := polygonCentroid(cp)
		if !ok {
			return Region{}, fmt.Errorf("%w: polygon has zero area", ErrInvalidRegion)
		}
		r.centroid = c
	} else {
		r.centroid = models.Point{X: (cp[0].X + cp[1].X) / 2, Y: (cp[0].Y + cp[1].Y) / 2}
	}
	return r, nil
}

func (r Region) IsLine() bool { return len(r.points) == 2 }

// Points returns a copy of the region's vertices.
func (r Region) Points() []models.Point {
	out := make([]models.Point, len(r.points))
	copy(out, r.points)
	return out
}

func (r Region) Centroid() models.Point { return r.centroid }

// Contains reports whether p lies strictly inside a polygon region.
// Lines contain nothing.
func (r Region) Contains(p models.Point) bool {
	if r.IsLine() {
		return false
	}
	inside := false
	n := len(r.points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.points[i], r.points[j]
		if onSegment(a, b, p) {
			return false
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInSegmentArea reports whether p lies within the inclusive bounding
// box of the segment start-end.
func PointInSegmentArea(p, start, end models.Point) bool {
	minX, maxX := math.Min(start.X, end.X), math.Max(start.X, end.X)
	minY, maxY := math.Min(start.Y, end.Y), math.Max(start.Y, end.Y)
	return minX <= p.X && p.X <= maxX && minY <= p.Y && p.Y <= maxY
}

// CrossDirection runs the sign test of prev and curr against the infinite
// line through start-end. It reports a crossing only when the two cross
// products have strictly opposite signs; the direction is OUT when the
// current point lies on the positive side.
func CrossDirection(start, end, prev, curr models.Point) (models.Direction, bool) {
	lx, ly := end.X-start.X, end.Y-start.Y

	crossPrev := lx*(prev.Y-start.Y) - ly*(prev.X-start.X)
	crossCurr := lx*(curr.Y-start.Y) - ly*(curr.X-start.X)

	if crossPrev*crossCurr < 0 {
		if crossCurr > 0 {
			return models.DirectionOut, true
		}
		return models.DirectionIn, true
	}
	return "", false
}

// CrossingWithinLineArea gates the sign test on the current point lying
// inside the segment's bounding box, which keeps tracker id jumps far from
// the line from registering.
func CrossingWithinLineArea(start, end, prev, curr models.Point) (models.Direction, bool) {
	if !PointInSegmentArea(curr, start, end) {
		return "", false
	}
	return CrossDirection(start, end, prev, curr)
}

func onSegment(a, b, p models.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > 1e-9 {
		return false
	}
	return PointInSegmentArea(p, a, b)
}

// polygonCentroid is the area-weighted centroid (shoelace).
func polygonCentroid(pts []models.Point) (models.Point, bool) {
	var area, cx, cy float64
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		f := a.X*b.Y - b.X*a.Y
		area += f
		cx += (a.X + b.X) * f
		cy += (a.Y + b.Y) * f
	}
	if math.Abs(area) < 1e-9 {
		return models.Point{}, false
	}
	area /= 2
	return models.Point{X: cx / (6 * area), Y: cy / (6 * area)}, true
}
