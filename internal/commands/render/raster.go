package render

import (
	"image"
	"image/color"
	"math"

	"github.com/danmuck/bridgectl/internal/scene"
)

// Orthographic projection: X maps right, Z maps up, Y is discarded.

var backgroundColor = color.NRGBA{R: 57, G: 57, B: 57, A: 255}

const frameMargin = 0.05

func rasterize(strokes []scene.Stroke, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, backgroundColor)
		}
	}

	proj, ok := fitProjection(strokes, width, height)
	if !ok {
		return img
	}

	for _, stroke := range strokes {
		rgba := strokeColor(stroke.Color)
		for i := 1; i < len(stroke.Points); i++ {
			x0, y0 := proj.apply(stroke.Points[i-1])
			x1, y1 := proj.apply(stroke.Points[i])
			drawLine(img, x0, y0, x1, y1, rgba)
		}
		if len(stroke.Points) == 1 {
			x, y := proj.apply(stroke.Points[0])
			setPixel(img, x, y, rgba)
		}
	}
	return img
}

type projection struct {
	scale            float64
	offsetX, offsetY float64
	height           int
}

func (p projection) apply(point scene.Point) (int, int) {
	x := int(math.Round(point.X*p.scale + p.offsetX))
	// Z grows upward, image rows grow downward.
	y := p.height - 1 - int(math.Round(point.Z*p.scale+p.offsetY))
	return x, y
}

// fitProjection centers the stroke bounding box in the frame with a
// uniform scale and a small margin. Degenerate boxes (single point,
// axis-aligned line) still land in frame.
func fitProjection(strokes []scene.Stroke, width, height int) (projection, bool) {
	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	seen := false
	for _, stroke := range strokes {
		for _, p := range stroke.Points {
			seen = true
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
			minZ = math.Min(minZ, p.Z)
			maxZ = math.Max(maxZ, p.Z)
		}
	}
	if !seen {
		return projection{}, false
	}

	spanX := maxX - minX
	spanZ := maxZ - minZ
	innerW := float64(width) * (1 - 2*frameMargin)
	innerH := float64(height) * (1 - 2*frameMargin)

	scale := 1.0
	if spanX > 0 || spanZ > 0 {
		scale = math.Inf(1)
		if spanX > 0 {
			scale = math.Min(scale, innerW/spanX)
		}
		if spanZ > 0 {
			scale = math.Min(scale, innerH/spanZ)
		}
	}

	offsetX := float64(width)/2 - (minX+spanX/2)*scale
	offsetY := float64(height)/2 - (minZ+spanZ/2)*scale
	return projection{scale: scale, offsetX: offsetX, offsetY: offsetY, height: height}, true
}

func strokeColor(c scene.Color) color.NRGBA {
	return color.NRGBA{
		R: component(c[0]),
		G: component(c[1]),
		B: component(c[2]),
		A: component(c[3]),
	}
}

func component(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// drawLine samples the segment once per covered pixel.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		setPixel(img, x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		setPixel(img, x, y, c)
	}
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetNRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
