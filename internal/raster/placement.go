package raster

import (
	"image"
	"math"
)

type Fit string

const (
	FitContain Fit = "contain"
	FitCover   Fit = "cover"
	FitStretch Fit = "stretch"
)

// Rect is a placement in destination coordinates. It may extend past the
// destination bounds when the policy crops.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Aspect() float64 {
	if r.H == 0 {
		return 0
	}
	return r.W / r.H
}

func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Contain scales src to fit entirely inside dst, centered.
func Contain(srcW, srcH int, dstW, dstH float64) Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Rect{}
	}
	scale := math.Min(dstW/float64(srcW), dstH/float64(srcH))
	w := float64(srcW) * scale
	h := float64(srcH) * scale
	return Rect{X: (dstW - w) / 2, Y: (dstH - h) / 2, W: w, H: h}
}

// Cover scales src to fill dst, multiplies by zoom, then positions the image
// at posX/posY percent of the remaining slack.
func Cover(srcW, srcH int, dstW, dstH, zoom, posX, posY float64) Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Rect{}
	}
	if zoom <= 0 {
		zoom = 1
	}
	scale := math.Max(dstW/float64(srcW), dstH/float64(srcH)) * zoom
	w := float64(srcW) * scale
	h := float64(srcH) * scale
	return Rect{
		X: (dstW - w) * (clampPercent(posX) / 100),
		Y: (dstH - h) * (clampPercent(posY) / 100),
		W: w,
		H: h,
	}
}

func Place(fit Fit, srcW, srcH int, dstW, dstH float64) Rect {
	switch fit {
	case FitCover:
		return Cover(srcW, srcH, dstW, dstH, 1, 50, 50)
	case FitStretch:
		return Rect{W: dstW, H: dstH}
	default:
		return Contain(srcW, srcH, dstW, dstH)
	}
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 50
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
