package transform

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/dunamismax/artifactkit/internal/raster"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Watermark stamps Text onto the surface. Scale 0 picks a scale from the
// surface size.
type Watermark struct {
	Text    string
	Opacity float64
	Gravity string
	Scale   int
	Color   color.NRGBA
}

func (Watermark) Name() string { return "watermark" }

func (wm Watermark) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	text := strings.TrimSpace(wm.Text)
	if text == "" {
		return nil, invalid("watermark requires text")
	}

	opacity := wm.Opacity
	if opacity <= 0 {
		opacity = 0.65
	}
	if opacity > 1 {
		opacity = 1
	}
	scale := wm.Scale
	if scale <= 0 {
		scale = max(1, min(s.Width, s.Height)/240)
	}
	fg := wm.Color
	if fg == (color.NRGBA{}) {
		fg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	fg.A = uint8(math.Round(opacity * float64(fg.A)))

	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()

	drawer := &font.Drawer{Face: face}
	width := drawer.MeasureString(text).Ceil()

	label := image.NewNRGBA(image.Rect(0, 0, width, height))
	drawer.Dst = label
	drawer.Src = image.NewUniform(fg)
	drawer.Dot = fixed.P(0, ascent)
	drawer.DrawString(text)

	scaledW, scaledH := width*scale, height*scale
	x, y := watermarkPosition(s.Bounds(), scaledW, scaledH, 12*scale, wm.Gravity)
	raster.DrawScaled(s, label, raster.Rect{
		X: float64(x),
		Y: float64(y),
		W: float64(scaledW),
		H: float64(scaledH),
	}, image.Rectangle{})
	return s, nil
}

// watermarkPosition returns the top-left corner of a text box placed by gravity.
func watermarkPosition(bounds image.Rectangle, textWidth, textHeight, pad int, gravity string) (int, int) {
	availW := bounds.Dx()
	availH := bounds.Dy()

	leftX := pad
	centerX := (availW - textWidth) / 2
	rightX := availW - textWidth - pad

	topY := pad
	centerY := (availH - textHeight) / 2
	bottomY := availH - textHeight - pad

	maxX := max(0, availW-textWidth)
	maxY := max(0, availH-textHeight)

	switch strings.ToLower(strings.TrimSpace(gravity)) {
	case "northwest":
		return clamp(leftX, 0, maxX), clamp(topY, 0, maxY)
	case "north":
		return clamp(centerX, 0, maxX), clamp(topY, 0, maxY)
	case "northeast":
		return clamp(rightX, 0, maxX), clamp(topY, 0, maxY)
	case "west":
		return clamp(leftX, 0, maxX), clamp(centerY, 0, maxY)
	case "center":
		return clamp(centerX, 0, maxX), clamp(centerY, 0, maxY)
	case "east":
		return clamp(rightX, 0, maxX), clamp(centerY, 0, maxY)
	case "southwest":
		return clamp(leftX, 0, maxX), clamp(bottomY, 0, maxY)
	case "south":
		return clamp(centerX, 0, maxX), clamp(bottomY, 0, maxY)
	default:
		return clamp(rightX, 0, maxX), clamp(bottomY, 0, maxY)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
