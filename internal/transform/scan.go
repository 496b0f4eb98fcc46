package transform

import (
	"context"
	"image"
	"math"
	"strings"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Quad is a document outline, clockwise from the top-left corner.
type Quad [4]image.Point

func (q Quad) Bounds() image.Rectangle {
	r := image.Rectangle{Min: q[0], Max: q[0]}
	for _, p := range q[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

func quadFromRect(r image.Rectangle) Quad {
	return Quad{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}
}

type EdgeDetector interface {
	Detect(ctx context.Context, s *raster.Surface) (Quad, error)
}

// SobelDetector finds the bounding box of pixels whose gradient magnitude is
// in the top Percentile of a downscaled luma image. When too few edges are
// found it returns the image inset by Margin on each side.
type SobelDetector struct {
	MaxSide    int
	Percentile float64
	Margin     float64
}

func DefaultSobelDetector() SobelDetector {
	return SobelDetector{MaxSide: 512, Percentile: 0.9, Margin: 0.05}
}

func (d SobelDetector) Detect(ctx context.Context, s *raster.Surface) (Quad, error) {
	if err := s.Validate(); err != nil {
		return Quad{}, err
	}
	maxSide := d.MaxSide
	if maxSide <= 0 {
		maxSide = 512
	}
	scale := math.Min(1, float64(maxSide)/float64(max(s.Width, s.Height)))
	small := s
	if scale < 1 {
		var err error
		small, err = raster.Resize(s, max(1, int(float64(s.Width)*scale)), max(1, int(float64(s.Height)*scale)))
		if err != nil {
			return Quad{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Quad{}, err
	}

	w, h := small.Width, small.Height
	lum := make([]float64, w*h)
	for i := range lum {
		p := small.Pix[i*4 : i*4+3]
		lum[i] = luma(float64(p[0]), float64(p[1]), float64(p[2]))
	}
	mag := make([]float64, w*h)
	var hist [1024]int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			at := func(dx, dy int) float64 { return lum[(y+dy)*w+x+dx] }
			gx := -at(-1, -1) - 2*at(-1, 0) - at(-1, 1) + at(1, -1) + 2*at(1, 0) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			m := math.Hypot(gx, gy)
			mag[y*w+x] = m
			hist[min(int(m), len(hist)-1)]++
		}
	}

	fallback := d.fallback(s.Width, s.Height)
	interior := (w - 2) * (h - 2)
	if interior <= 0 {
		return fallback, nil
	}
	pct := d.Percentile
	if pct <= 0 || pct >= 1 {
		pct = 0.9
	}
	target := int(float64(interior) * pct)
	cut, acc := 0, 0
	for ; cut < len(hist); cut++ {
		acc += hist[cut]
		if acc >= target {
			break
		}
	}
	// flat images have no meaningful edges
	cutoff := math.Max(float64(cut), 64)

	box := image.Rectangle{Min: image.Pt(w, h)}
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if mag[y*w+x] <= cutoff {
				continue
			}
			count++
			box.Min.X = min(box.Min.X, x)
			box.Min.Y = min(box.Min.Y, y)
			box.Max.X = max(box.Max.X, x+1)
			box.Max.Y = max(box.Max.Y, y+1)
		}
	}
	if count < 8 || box.Dx() < w/8 || box.Dy() < h/8 {
		return fallback, nil
	}
	full := image.Rect(
		int(float64(box.Min.X)/scale),
		int(float64(box.Min.Y)/scale),
		int(math.Ceil(float64(box.Max.X)/scale)),
		int(math.Ceil(float64(box.Max.Y)/scale)),
	).Intersect(s.Bounds())
	return quadFromRect(full), nil
}

func (d SobelDetector) fallback(w, h int) Quad {
	m := d.Margin
	if m <= 0 || m >= 0.5 {
		m = 0.05
	}
	mx, my := int(float64(w)*m), int(float64(h)*m)
	return quadFromRect(image.Rect(mx, my, w-mx, h-my))
}

var documentFilters = map[string]bool{"original": true, "grayscale": true, "bw": true, "magic": true}

// Scan crops to the detected document and applies a document filter. A zero
// Outline runs Detector; a nil Detector uses DefaultSobelDetector.
type Scan struct {
	Detector EdgeDetector
	Outline  Quad
	Filter   string
}

func (Scan) Name() string { return "scan" }

func (sc Scan) Apply(ctx context.Context, s *raster.Surface) (*raster.Surface, error) {
	filter := strings.ToLower(sc.Filter)
	if filter == "" {
		filter = "original"
	}
	if !documentFilters[filter] {
		return nil, invalid("unknown document filter %q", sc.Filter)
	}
	outline := sc.Outline
	if outline == (Quad{}) {
		det := sc.Detector
		if det == nil {
			det = DefaultSobelDetector()
		}
		var err error
		if outline, err = det.Detect(ctx, s); err != nil {
			return nil, err
		}
	}
	cropped, err := Crop{Rect: outline.Bounds()}.Apply(ctx, s)
	if err != nil {
		return nil, err
	}
	return Filter{Kind: filter}.Apply(ctx, cropped)
}
