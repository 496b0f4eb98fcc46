package raster

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// DrawScaled resamples src into dst at r, compositing over existing pixels.
// Drawing is clipped to clip when it is non-empty.
func DrawScaled(dst *Surface, src image.Image, r Rect, clip image.Rectangle) {
	target := dst.Image()
	bounds := target.Bounds()
	if !clip.Empty() {
		bounds = bounds.Intersect(clip)
	}
	if bounds.Empty() || r.W <= 0 || r.H <= 0 {
		return
	}
	sub := target.SubImage(bounds).(*image.NRGBA)
	xdraw.CatmullRom.Scale(sub, r.Rectangle(), src, src.Bounds(), xdraw.Over, nil)
}

// DrawScaledRounded is DrawScaled with the clip rectangle's corners rounded
// by radius pixels.
func DrawScaledRounded(dst *Surface, src image.Image, r Rect, clip image.Rectangle, radius float64) {
	if radius < 1 {
		DrawScaled(dst, src, r, clip)
		return
	}
	clip = clip.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	sub := dst.Image().SubImage(clip).(*image.NRGBA)
	mask := RoundedMask(clip, radius)
	xdraw.CatmullRom.Scale(sub, r.Rectangle(), src, src.Bounds(), xdraw.Over, &xdraw.Options{
		DstMask: mask,
	})
}

// Resize returns a new surface of the given size.
func Resize(src *Surface, width, height int) (*Surface, error) {
	out, err := New(width, height)
	if err != nil {
		return nil, err
	}
	xdraw.CatmullRom.Scale(out.Image(), out.Bounds(), src.Image(), src.Bounds(), xdraw.Src, nil)
	return out, nil
}

// RoundedMask returns an alpha mask covering r with rounded corners.
func RoundedMask(r image.Rectangle, radius float64) *image.Alpha {
	mask := image.NewAlpha(r)
	maxRadius := math.Min(float64(r.Dx()), float64(r.Dy())) / 2
	if radius > maxRadius {
		radius = maxRadius
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			cx := math.Max(radius, math.Min(w-radius, px))
			cy := math.Max(radius, math.Min(h-radius, py))
			d := math.Hypot(px-cx, py-cy)
			a := radius + 0.5 - d
			switch {
			case a >= 1:
				mask.SetAlpha(r.Min.X+x, r.Min.Y+y, color.Alpha{A: 0xff})
			case a > 0:
				mask.SetAlpha(r.Min.X+x, r.Min.Y+y, color.Alpha{A: uint8(a * 255)})
			}
		}
	}
	return mask
}

// ParallelRows runs fn for each row in [0, n) across GOMAXPROCS workers.
func ParallelRows(n int, fn func(y int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(start int) {
			defer wg.Done()
			for y := start; y < n; y += workers {
				fn(y)
			}
		}(w)
	}
	wg.Wait()
}
