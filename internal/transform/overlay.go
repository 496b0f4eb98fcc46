package transform

import (
	"context"
	"image"
	"strings"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Overlay composites Image onto a corner of the surface. Size is the overlay
// width in pixels; zero keeps a fifth of the shorter side.
type Overlay struct {
	Image  *raster.Surface
	Corner string // top-left, top-right, bottom-left, bottom-right
	Size   int
	Margin int
}

func (Overlay) Name() string { return "overlay" }

func (o Overlay) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	if o.Image == nil {
		return nil, invalid("overlay image is required")
	}
	if o.Margin < 0 || o.Size < 0 {
		return nil, invalid("negative overlay size or margin")
	}
	size := o.Size
	if size == 0 {
		size = min(s.Width, s.Height) / 5
	}
	w := size
	h := size * o.Image.Height / o.Image.Width
	if w+2*o.Margin > s.Width || h+2*o.Margin > s.Height || h <= 0 {
		return nil, invalid("overlay %dx%d does not fit %dx%d", w, h, s.Width, s.Height)
	}

	x, y := o.Margin, o.Margin
	switch strings.ToLower(o.Corner) {
	case "top-left":
	case "top-right":
		x = s.Width - w - o.Margin
	case "bottom-left":
		y = s.Height - h - o.Margin
	case "", "bottom-right":
		x = s.Width - w - o.Margin
		y = s.Height - h - o.Margin
	default:
		return nil, invalid("unknown corner %q", o.Corner)
	}
	r := raster.Rect{X: float64(x), Y: float64(y), W: float64(w), H: float64(h)}
	raster.DrawScaled(s, o.Image.Image(), r, image.Rectangle{})
	return s, nil
}
