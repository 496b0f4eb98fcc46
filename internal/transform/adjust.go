package transform

import (
	"context"
	"math"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Adjust applies brightness, contrast, saturation and hue rotation, always in
// that order. The first three are percentage offsets in [-100, 100] where 0 is
// the identity; Hue is in degrees.
type Adjust struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Hue        float64
}

func (Adjust) Name() string { return "adjust" }

func (a Adjust) IsIdentity() bool {
	return a == Adjust{}
}

func (a Adjust) validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"brightness", a.Brightness},
		{"contrast", a.Contrast},
		{"saturation", a.Saturation},
	} {
		if math.IsNaN(v.val) || v.val < -100 || v.val > 100 {
			return invalid("%s %.1f outside [-100,100]", v.name, v.val)
		}
	}
	if math.IsNaN(a.Hue) || a.Hue < -360 || a.Hue > 360 {
		return invalid("hue %.1f outside [-360,360]", a.Hue)
	}
	return nil
}

func (a Adjust) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if a.IsIdentity() {
		return s, nil
	}

	brightness := 1 + a.Brightness/100
	contrast := 1 + a.Contrast/100
	saturation := 1 + a.Saturation/100
	hue := hueMatrix(a.Hue)
	rotate := math.Mod(a.Hue, 360) != 0

	raster.ParallelRows(s.Height, func(y int) {
		row := s.Pix[y*s.Width*4 : (y+1)*s.Width*4]
		for i := 0; i < len(row); i += 4 {
			r, g, b := float64(row[i]), float64(row[i+1]), float64(row[i+2])

			r, g, b = r*brightness, g*brightness, b*brightness

			r = (r-128)*contrast + 128
			g = (g-128)*contrast + 128
			b = (b-128)*contrast + 128

			l := luma(r, g, b)
			r = l + (r-l)*saturation
			g = l + (g-l)*saturation
			b = l + (b-l)*saturation

			if rotate {
				r, g, b = hue[0]*r+hue[1]*g+hue[2]*b,
					hue[3]*r+hue[4]*g+hue[5]*b,
					hue[6]*r+hue[7]*g+hue[8]*b
			}

			row[i] = clampByte(r)
			row[i+1] = clampByte(g)
			row[i+2] = clampByte(b)
		}
	})
	return s, nil
}

func luma(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// hueMatrix is the standard hue-rotate filter matrix.
func hueMatrix(deg float64) [9]float64 {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return [9]float64{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}
}
