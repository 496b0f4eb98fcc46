package transform

import (
	"context"
	"image"

	"github.com/dunamismax/artifactkit/internal/raster"
)

type Inpainter interface {
	Inpaint(ctx context.Context, s *raster.Surface, mask []image.Rectangle) (*raster.Surface, error)
}

// DiffusionInpainter fills masked pixels by repeatedly averaging their four
// neighbours, seeded from the nearest unmasked row above or below.
type DiffusionInpainter struct {
	Iterations int
}

func (d DiffusionInpainter) Inpaint(ctx context.Context, s *raster.Surface, mask []image.Rectangle) (*raster.Surface, error) {
	if len(mask) == 0 {
		return nil, invalid("inpaint needs at least one mask area")
	}
	bounds := s.Bounds()
	masked := make([]bool, s.Width*s.Height)
	var region image.Rectangle
	for _, r := range mask {
		r = r.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		region = region.Union(r)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				masked[y*s.Width+x] = true
			}
		}
	}
	if region.Empty() {
		return nil, invalid("mask lies outside the image")
	}
	if region == bounds {
		return nil, invalid("mask covers the whole image")
	}

	iterations := d.Iterations
	if iterations <= 0 {
		iterations = max(64, 2*max(region.Dx(), region.Dy()))
	}

	w := s.Width
	cur := make([]float64, len(s.Pix))
	for i, v := range s.Pix {
		cur[i] = float64(v)
	}
	seed(cur, masked, w, s.Height, region)
	next := make([]float64, len(cur))
	copy(next, cur)

	for it := 0; it < iterations; it++ {
		if it%16 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raster.ParallelRows(region.Dy(), func(dy int) {
			y := region.Min.Y + dy
			for x := region.Min.X; x < region.Max.X; x++ {
				if !masked[y*w+x] {
					continue
				}
				var sum [4]float64
				n := 0.0
				for _, p := range [4]image.Point{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
					if !p.In(bounds) {
						continue
					}
					off := (p.Y*w + p.X) * 4
					for c := 0; c < 4; c++ {
						sum[c] += cur[off+c]
					}
					n++
				}
				off := (y*w + x) * 4
				for c := 0; c < 4; c++ {
					next[off+c] = sum[c] / n
				}
			}
		})
		cur, next = next, cur
	}

	for i := range masked {
		if !masked[i] {
			continue
		}
		for c := 0; c < 4; c++ {
			s.Pix[i*4+c] = clampByte(cur[i*4+c])
		}
	}
	return s, nil
}

// seed initialises masked pixels from the closest unmasked pixel in the same
// column so diffusion converges in far fewer iterations.
func seed(pix []float64, masked []bool, w, h int, region image.Rectangle) {
	for x := region.Min.X; x < region.Max.X; x++ {
		for y := region.Min.Y; y < region.Max.Y; y++ {
			if !masked[y*w+x] {
				continue
			}
			up, down := y-1, y+1
			for up >= 0 && masked[up*w+x] {
				up--
			}
			for down < h && masked[down*w+x] {
				down++
			}
			src := -1
			switch {
			case up >= 0 && (down >= h || y-up <= down-y):
				src = up
			case down < h:
				src = down
			}
			if src < 0 {
				continue
			}
			copy(pix[(y*w+x)*4:(y*w+x)*4+4], pix[(src*w+x)*4:(src*w+x)*4+4])
		}
	}
}

// Inpaint is the stage form of an Inpainter.
type Inpaint struct {
	Inpainter Inpainter
	Mask      []image.Rectangle
}

func (Inpaint) Name() string { return "inpaint" }

func (ip Inpaint) Apply(ctx context.Context, s *raster.Surface) (*raster.Surface, error) {
	in := ip.Inpainter
	if in == nil {
		in = DiffusionInpainter{}
	}
	return in.Inpaint(ctx, s, ip.Mask)
}
