package counting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

func pt(x, y float64) models.Point { return models.Point{X: x, Y: y} }

func TestCrossDirectionSignTest(t *testing.T) {
	start, end := pt(0, 0), pt(10, 0)

	dir, ok := CrossDirection(start, end, pt(5, -1), pt(5, 1))
	require.True(t, ok)
	require.Equal(t, models.DirectionOut, dir, "current point on the positive side is OUT")

	dir, ok = CrossDirection(start, end, pt(5, 1), pt(5, -1))
	require.True(t, ok)
	require.Equal(t, models.DirectionIn, dir)

	_, ok = CrossDirection(start, end, pt(5, -1), pt(5, -2))
	require.False(t, ok, "same side is no crossing")

	_, ok = CrossDirection(start, end, pt(5, -1), pt(5, 0))
	require.False(t, ok, "landing on the line is no crossing")
}

func TestCrossingGateRejectsFarPoints(t *testing.T) {
	start, end := pt(0, 0), pt(10, 0)

	_, ok := CrossDirection(start, end, pt(5, -1), pt(1000, 1000))
	require.True(t, ok, "sign test alone would trigger")

	_, ok = CrossingWithinLineArea(start, end, pt(5, -1), pt(1000, 1000))
	require.False(t, ok)

	dir, ok := CrossingWithinLineArea(pt(0, 0), pt(10, 10), pt(2, 6), pt(6, 2))
	require.True(t, ok)
	require.Equal(t, models.DirectionIn, dir)
}

func TestPointInSegmentAreaInclusive(t *testing.T) {
	require.True(t, PointInSegmentArea(pt(0, 0), pt(0, 0), pt(10, 5)))
	require.True(t, PointInSegmentArea(pt(10, 5), pt(10, 5), pt(0, 0)))
	require.False(t, PointInSegmentArea(pt(10.1, 5), pt(0, 0), pt(10, 5)))
}

func TestNewRegionValidation(t *testing.T) {
	_, err := NewRegion(nil)
	require.True(t, errors.Is(err, ErrInvalidRegion))

	_, err = NewRegion([]models.Point{pt(1, 1)})
	require.ErrorIs(t, err, ErrInvalidRegion)

	_, err = NewRegion([]models.Point{pt(1, 1), pt(1, 1)})
	require.ErrorIs(t, err, ErrInvalidRegion)

	_, err = NewRegion([]models.Point{pt(0, 0), pt(1, 1), pt(2, 2)})
	require.ErrorIs(t, err, ErrInvalidRegion, "collinear polygon has no area")

	line, err := NewRegion([]models.Point{pt(0, 0), pt(10, 0)})
	require.NoError(t, err)
	require.True(t, line.IsLine())

	def := DefaultRegion()
	require.True(t, def.IsLine())
	require.Equal(t, []models.Point{pt(20, 400), pt(1260, 400)}, def.Points())
}

func TestPolygonContainsAndCentroid(t *testing.T) {
	sq, err := NewRegion([]models.Point{pt(0, 0), pt(100, 0), pt(100, 100), pt(0, 100)})
	require.NoError(t, err)
	require.False(t, sq.IsLine())
	require.Equal(t, pt(50, 50), sq.Centroid())

	require.True(t, sq.Contains(pt(50, 50)))
	require.True(t, sq.Contains(pt(1, 99)))
	require.False(t, sq.Contains(pt(100, 50)), "boundary is outside")
	require.False(t, sq.Contains(pt(150, 50)))
	require.False(t, sq.Contains(pt(-1, 50)))
}

func TestAnchorPolicies(t *testing.T) {
	box := models.BBox{X1: 10, Y1: 20, X2: 30, Y2: 60}

	cases := map[string]models.Point{
		"centroid":      pt(20, 40),
		"bottom-right":  pt(30, 60),
		"buttom-right":  pt(30, 60),
		"bottom-center": pt(20, 60),
		"buttom-center": pt(20, 60),
		"center-right":  pt(30, 40),
		"":              pt(20, 40),
	}
	for name, want := range cases {
		p, err := ParseAnchorPolicy(name)
		require.NoError(t, err, name)
		require.Equal(t, want, p.Anchor(box), name)
	}

	_, err := ParseAnchorPolicy("top-left")
	require.Error(t, err)
}
