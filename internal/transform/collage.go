package transform

import (
	"context"
	"image/color"
	"math"
	"strings"

	"github.com/dunamismax/artifactkit/internal/raster"
)

const (
	LayoutGrid    = "grid"
	LayoutCircle  = "circle"
	LayoutHeart   = "heart"
	LayoutDiamond = "diamond"
)

// Collage arranges Images on a canvas. The surface handed to Apply is used
// only for its size; pass a blank canvas or use Render.
type Collage struct {
	Images     []*raster.Surface
	Layout     string
	Cols       int
	Rows       int
	Spacing    int
	Radius     float64
	Background color.Color
}

func (Collage) Name() string { return "collage" }

func (c Collage) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	return c.Render(s.Width, s.Height)
}

func (c Collage) Render(width, height int) (*raster.Surface, error) {
	if len(c.Images) == 0 {
		return nil, invalid("collage needs at least one image")
	}
	if c.Spacing < 0 || c.Cols < 0 || c.Rows < 0 || c.Radius < 0 {
		return nil, invalid("negative collage setting")
	}
	cells, err := c.cells(width, height)
	if err != nil {
		return nil, err
	}
	bg := c.Background
	if bg == nil {
		bg = color.White
	}
	out, err := raster.Filled(width, height, bg)
	if err != nil {
		return nil, err
	}
	for i, cell := range cells {
		img := c.Images[i%len(c.Images)]
		r := raster.Cover(img.Width, img.Height, cell.W, cell.H, 1, 50, 50).Offset(cell.X, cell.Y)
		raster.DrawScaledRounded(out, img.Image(), r, cell.Rectangle(), c.Radius)
	}
	return out, nil
}

func (c Collage) cells(width, height int) ([]raster.Rect, error) {
	n := len(c.Images)
	w, h := float64(width), float64(height)
	gap := float64(c.Spacing)

	switch strings.ToLower(c.Layout) {
	case "", LayoutGrid:
		cols, rows := c.Cols, c.Rows
		switch {
		case cols == 0 && rows == 0:
			cols = int(math.Ceil(math.Sqrt(float64(n))))
			rows = (n + cols - 1) / cols
		case cols == 0:
			cols = (n + rows - 1) / rows
		case rows == 0:
			rows = (n + cols - 1) / cols
		case cols*rows < n:
			return nil, invalid("grid %dx%d has room for %d of %d images", cols, rows, cols*rows, n)
		}
		cw := (w - gap*float64(cols+1)) / float64(cols)
		ch := (h - gap*float64(rows+1)) / float64(rows)
		if cw < 1 || ch < 1 {
			return nil, invalid("grid %dx%d with spacing %d does not fit %dx%d", cols, rows, c.Spacing, width, height)
		}
		out := make([]raster.Rect, 0, cols*rows)
		for i := 0; i < cols*rows; i++ {
			out = append(out, raster.Rect{
				X: gap + float64(i%cols)*(cw+gap),
				Y: gap + float64(i/cols)*(ch+gap),
				W: cw,
				H: ch,
			})
		}
		return out, nil

	case LayoutCircle:
		m := math.Min(w, h) / 2
		size, radius := m, 0.0
		if n > 1 {
			sin := math.Sin(math.Pi / float64(n))
			size = 2 * m * sin / (1 + sin)
			radius = m - size/2
		}
		return ring(n, w/2, h/2, size-gap, func(t float64) (float64, float64) {
			return radius * math.Cos(t-math.Pi/2), radius * math.Sin(t-math.Pi/2)
		})

	case LayoutHeart:
		size := math.Min(w, h) / math.Max(3, math.Sqrt(float64(n))*1.6)
		scale := (math.Min(w, h) - size) / 34
		return ring(n, w/2, h/2, size-gap, func(t float64) (float64, float64) {
			x := 16 * math.Pow(math.Sin(t), 3)
			y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
			return x * scale, -y*scale - 6*scale
		})

	case LayoutDiamond:
		size := math.Min(w, h) / math.Max(3, float64(n)/4+1)
		half := (math.Min(w, h) - size) / 2
		return ring(n, w/2, h/2, size-gap, func(t float64) (float64, float64) {
			// walk the rhombus perimeter at constant speed
			u := math.Mod(t/(2*math.Pi)*4, 4)
			seg, f := math.Floor(u), u-math.Floor(u)
			corners := [5][2]float64{{0, -1}, {1, 0}, {0, 1}, {-1, 0}, {0, -1}}
			a, b := corners[int(seg)], corners[int(seg)+1]
			return (a[0] + (b[0]-a[0])*f) * half, (a[1] + (b[1]-a[1])*f) * half
		})
	}
	return nil, invalid("unknown collage layout %q", c.Layout)
}

// ring places n square cells of the given size centred on points of a closed
// curve parameterised over [0, 2π).
func ring(n int, cx, cy, size float64, curve func(t float64) (float64, float64)) ([]raster.Rect, error) {
	if size < 1 {
		return nil, invalid("collage cells are too small")
	}
	out := make([]raster.Rect, n)
	for i := range out {
		dx, dy := curve(2 * math.Pi * float64(i) / float64(n))
		out[i] = raster.Rect{X: cx + dx - size/2, Y: cy + dy - size/2, W: size, H: size}
	}
	return out, nil
}
