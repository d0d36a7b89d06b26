package solutions

import (
	"fmt"
	"image/color"
	"sort"

	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
)

// DrawCounterPanel draws one line per counter followed by its per-class
// tallies. y is advanced past the panel.
func DrawCounterPanel(mat *gocv.Mat, counts []models.CounterCounts, y *int) {
	if mat == nil {
		return
	}

	for _, c := range counts {
		title := c.Counter
		if c.Zone != "" && c.Zone != c.Counter {
			title = fmt.Sprintf("%s (%s)", c.Counter, c.Zone)
		}
		DrawCompactCounter(mat, title, c.InCounts, c.OutCounts, 15, *y, Cyan)
		*y += 38

		labels := make([]string, 0, len(c.ClassWise))
		for label := range c.ClassWise {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			t := c.ClassWise[label]
			text := fmt.Sprintf("%s  IN %d  OUT %d", label, t.In, t.Out)
			DrawTextEnhanced(mat, text, 25, *y, countColor(t.In+t.Out), 0.55, 1)
			*y += 26
		}
		*y += 8
	}
}

// countColor returns gray for nothing counted, then green, then gold.
func countColor(n int) color.RGBA {
	switch {
	case n == 0:
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	case n <= 50:
		return Green
	default:
		return Gold
	}
}
