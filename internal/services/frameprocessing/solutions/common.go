package solutions

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Gold   = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Orange = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

// DrawTextEnhanced draws text on a dark background box.
func DrawTextEnhanced(mat *gocv.Mat, text string, x, y int, textColor color.RGBA, fontScale float64, thickness int) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	padding := 8
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 200}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)

	gocv.PutText(mat, text, image.Pt(x+1, y+1), fontFace, fontScale, color.RGBA{A: 100}, thickness)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}

// DrawCompactCounter draws "TITLE | IN: x | OUT: y" on one line and returns
// its width.
func DrawCompactCounter(mat *gocv.Mat, title string, in, out int, x, y int, titleColor color.RGBA) int {
	if mat == nil {
		return 0
	}

	fontFace := gocv.FontHersheySimplex
	fontScale := 0.65
	thickness := 2
	padding := 10
	spacing := 10

	inText := fmt.Sprintf("IN: %d", in)
	outText := fmt.Sprintf("OUT: %d", out)
	separator := "|"

	titleSize := gocv.GetTextSize(title, fontFace, fontScale, thickness)
	inSize := gocv.GetTextSize(inText, fontFace, fontScale, thickness)
	outSize := gocv.GetTextSize(outText, fontFace, fontScale, thickness)
	sepSize := gocv.GetTextSize(separator, fontFace, fontScale, thickness)

	totalWidth := titleSize.X + sepSize.X*2 + inSize.X + outSize.X + spacing*4 + padding*2
	textHeight := titleSize.Y

	bgRect := image.Rect(x, y-textHeight-padding, x+totalWidth, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 240}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)
	gocv.Rectangle(mat, image.Rect(x-1, y-textHeight-padding-1, x+totalWidth+1, y+padding+1), color.RGBA{R: 80, G: 80, B: 80, A: 255}, 1)

	shadow := color.RGBA{A: 150}
	sepColor := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	parts := []struct {
		text  string
		width int
		color color.RGBA
	}{
		{title, titleSize.X, titleColor},
		{separator, sepSize.X, sepColor},
		{inText, inSize.X, Green},
		{separator, sepSize.X, sepColor},
		{outText, outSize.X, Orange},
	}

	textX := x + padding
	for _, p := range parts {
		if p.text != separator {
			gocv.PutText(mat, p.text, image.Pt(textX+1, y+1), fontFace, fontScale, shadow, thickness)
		}
		gocv.PutText(mat, p.text, image.Pt(textX, y), fontFace, fontScale, p.color, thickness)
		textX += p.width + spacing
	}
	return totalWidth
}

// DrawRegion draws a counting line, or a closed polygon with its corners
// marked.
func DrawRegion(mat *gocv.Mat, pts []image.Point, regionColor color.RGBA, thickness int) {
	if mat == nil || len(pts) < 2 {
		return
	}
	if len(pts) == 2 {
		gocv.Line(mat, pts[0], pts[1], regionColor, thickness)
		gocv.Circle(mat, pts[0], thickness+3, regionColor, -1)
		gocv.Circle(mat, pts[1], thickness+3, regionColor, -1)
		return
	}
	for i := range pts {
		gocv.Line(mat, pts[i], pts[(i+1)%len(pts)], regionColor, thickness)
	}
}

// DrawBox draws a detection box with corner accents and a label above it.
func DrawBox(mat *gocv.Mat, rect image.Rectangle, label string, boxColor color.RGBA) {
	if mat == nil {
		return
	}
	rect = rect.Intersect(image.Rect(0, 0, mat.Cols()-1, mat.Rows()-1))
	if rect.Empty() {
		return
	}

	gocv.Rectangle(mat, rect, boxColor, 2)

	corner := min(15, rect.Dx()/3, rect.Dy()/3)
	x1, y1, x2, y2 := rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+corner, y1), boxColor, 3)
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+corner), boxColor, 3)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2-corner, y1), boxColor, 3)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2, y1+corner), boxColor, 3)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1+corner, y2), boxColor, 3)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1, y2-corner), boxColor, 3)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-corner, y2), boxColor, 3)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-corner), boxColor, 3)

	if label != "" {
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)
		ty := max(y1-4, size.Y+2)
		gocv.Rectangle(mat, image.Rect(x1, ty-size.Y-4, x1+size.X+6, ty+2), boxColor, -1)
		gocv.PutText(mat, label, image.Pt(x1+3, ty-1), gocv.FontHersheySimplex, 0.5, color.RGBA{A: 255}, 1)
	}
}

// DrawTrack draws the anchor trail of one track, newest point last.
func DrawTrack(mat *gocv.Mat, pts []image.Point, trackColor color.RGBA) {
	if mat == nil || len(pts) == 0 {
		return
	}
	for i := 1; i < len(pts); i++ {
		gocv.Line(mat, pts[i-1], pts[i], trackColor, 2)
	}
	gocv.Circle(mat, pts[len(pts)-1], 4, trackColor, -1)
}
