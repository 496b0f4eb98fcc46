package transform

import (
	"context"
	"sort"
	"strings"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Filter applies a named preset or effect.
type Filter struct {
	Kind   string
	Radius int // blur radius, defaults to 2
}

type filterFunc func(f Filter, s *raster.Surface) *raster.Surface

var filters = map[string]filterFunc{
	"original":  func(_ Filter, s *raster.Surface) *raster.Surface { return s },
	"grayscale": func(_ Filter, s *raster.Surface) *raster.Surface { return grayscale(s) },
	"sepia":     func(_ Filter, s *raster.Surface) *raster.Surface { return sepia(s, 1) },
	"invert":    func(_ Filter, s *raster.Surface) *raster.Surface { return invert(s) },
	"bw":        func(_ Filter, s *raster.Surface) *raster.Surface { return threshold(s) },
	"magic":     func(_ Filter, s *raster.Surface) *raster.Surface { return stretch(s, 0.01) },
	"auto":      func(_ Filter, s *raster.Surface) *raster.Surface { return stretch(s, 0.005) },
	"sharpen":   func(_ Filter, s *raster.Surface) *raster.Surface { return sharpen(s) },
	"blur": func(f Filter, s *raster.Surface) *raster.Surface {
		r := f.Radius
		if r <= 0 {
			r = 2
		}
		return boxBlur(s, r)
	},
	"enhance":  func(_ Filter, s *raster.Surface) *raster.Surface { return sharpen(stretch(s, 0.005)) },
	"vivid":    preset(Adjust{Contrast: 10, Saturation: 30}),
	"dramatic": preset(Adjust{Contrast: 35, Saturation: -10}),
	"warm":     func(_ Filter, s *raster.Surface) *raster.Surface { return tint(s, 1.08, 1.0, 0.9) },
	"cool":     func(_ Filter, s *raster.Surface) *raster.Surface { return tint(s, 0.92, 1.0, 1.1) },
	"vintage": func(_ Filter, s *raster.Surface) *raster.Surface {
		s = sepia(s, 0.5)
		out, _ := Adjust{Brightness: 5, Contrast: -10}.Apply(context.Background(), s)
		return out
	},
}

func preset(a Adjust) filterFunc {
	return func(_ Filter, s *raster.Surface) *raster.Surface {
		out, _ := a.Apply(context.Background(), s)
		return out
	}
}

// FilterNames lists the supported filter names.
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f Filter) Name() string { return "filter:" + f.Kind }

func (f Filter) Apply(ctx context.Context, s *raster.Surface) (*raster.Surface, error) {
	fn, ok := filters[strings.ToLower(strings.TrimSpace(f.Kind))]
	if !ok {
		return nil, invalid("unknown filter %q", f.Kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(f, s), nil
}

func grayscale(s *raster.Surface) *raster.Surface {
	raster.ParallelRows(s.Height, func(y int) {
		row := s.Pix[y*s.Width*4 : (y+1)*s.Width*4]
		for i := 0; i < len(row); i += 4 {
			l := clampByte(luma(float64(row[i]), float64(row[i+1]), float64(row[i+2])))
			row[i], row[i+1], row[i+2] = l, l, l
		}
	})
	return s
}

func sepia(s *raster.Surface, amount float64) *raster.Surface {
	raster.ParallelRows(s.Height, func(y int) {
		row := s.Pix[y*s.Width*4 : (y+1)*s.Width*4]
		for i := 0; i < len(row); i += 4 {
			r, g, b := float64(row[i]), float64(row[i+1]), float64(row[i+2])
			sr := 0.393*r + 0.769*g + 0.189*b
			sg := 0.349*r + 0.686*g + 0.168*b
			sb := 0.272*r + 0.534*g + 0.131*b
			row[i] = clampByte(r + (sr-r)*amount)
			row[i+1] = clampByte(g + (sg-g)*amount)
			row[i+2] = clampByte(b + (sb-b)*amount)
		}
	})
	return s
}

func invert(s *raster.Surface) *raster.Surface {
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i] = 255 - s.Pix[i]
		s.Pix[i+1] = 255 - s.Pix[i+1]
		s.Pix[i+2] = 255 - s.Pix[i+2]
	}
	return s
}

func tint(s *raster.Surface, kr, kg, kb float64) *raster.Surface {
	raster.ParallelRows(s.Height, func(y int) {
		row := s.Pix[y*s.Width*4 : (y+1)*s.Width*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = clampByte(float64(row[i]) * kr)
			row[i+1] = clampByte(float64(row[i+1]) * kg)
			row[i+2] = clampByte(float64(row[i+2]) * kb)
		}
	})
	return s
}

// threshold converts to black and white at the Otsu threshold of the luma histogram.
func threshold(s *raster.Surface) *raster.Surface {
	var hist [256]int
	lum := make([]uint8, s.Width*s.Height)
	for i, j := 0, 0; i < len(s.Pix); i, j = i+4, j+1 {
		l := clampByte(luma(float64(s.Pix[i]), float64(s.Pix[i+1]), float64(s.Pix[i+2])))
		lum[j] = l
		hist[l]++
	}
	t := otsu(hist, len(lum))
	for i, j := 0, 0; i < len(s.Pix); i, j = i+4, j+1 {
		v := uint8(0)
		if lum[j] > t {
			v = 255
		}
		s.Pix[i], s.Pix[i+1], s.Pix[i+2] = v, v, v
	}
	return s
}

func otsu(hist [256]int, total int) uint8 {
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}
	var (
		sumB, best float64
		wB         int
		t          uint8 = 127
	)
	for i, n := range hist {
		wB += n
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * n)
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t
}

// stretch remaps each channel so that the clip fraction of darkest and
// brightest pixels saturate.
func stretch(s *raster.Surface, clip float64) *raster.Surface {
	n := s.Width * s.Height
	var lut [3][256]uint8
	for c := 0; c < 3; c++ {
		var hist [256]int
		for i := c; i < len(s.Pix); i += 4 {
			hist[s.Pix[i]]++
		}
		cut := int(float64(n) * clip)
		lo, hi := 0, 255
		for acc := 0; lo < 255; lo++ {
			acc += hist[lo]
			if acc > cut {
				break
			}
		}
		for acc := 0; hi > 0; hi-- {
			acc += hist[hi]
			if acc > cut {
				break
			}
		}
		for v := 0; v < 256; v++ {
			if hi <= lo {
				lut[c][v] = uint8(v)
				continue
			}
			lut[c][v] = clampByte(float64(v-lo) * 255 / float64(hi-lo))
		}
	}
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i] = lut[0][s.Pix[i]]
		s.Pix[i+1] = lut[1][s.Pix[i+1]]
		s.Pix[i+2] = lut[2][s.Pix[i+2]]
	}
	return s
}

func sharpen(s *raster.Surface) *raster.Surface {
	return convolve3(s, [9]float64{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	})
}

func convolve3(s *raster.Surface, k [9]float64) *raster.Surface {
	src := s.Clone()
	w, h := s.Width, s.Height
	raster.ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for ky := -1; ky <= 1; ky++ {
				yy := min(max(y+ky, 0), h-1)
				for kx := -1; kx <= 1; kx++ {
					xx := min(max(x+kx, 0), w-1)
					weight := k[(ky+1)*3+(kx+1)]
					off := (yy*w + xx) * 4
					acc[0] += float64(src.Pix[off]) * weight
					acc[1] += float64(src.Pix[off+1]) * weight
					acc[2] += float64(src.Pix[off+2]) * weight
				}
			}
			off := (y*w + x) * 4
			s.Pix[off] = clampByte(acc[0])
			s.Pix[off+1] = clampByte(acc[1])
			s.Pix[off+2] = clampByte(acc[2])
		}
	})
	return s
}

// boxBlur is a separable box blur over all four channels.
func boxBlur(s *raster.Surface, radius int) *raster.Surface {
	w, h := s.Width, s.Height
	tmp := make([]byte, len(s.Pix))
	span := float64(2*radius + 1)

	raster.ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for d := -radius; d <= radius; d++ {
				off := (y*w + min(max(x+d, 0), w-1)) * 4
				for c := 0; c < 4; c++ {
					acc[c] += float64(s.Pix[off+c])
				}
			}
			off := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				tmp[off+c] = clampByte(acc[c] / span)
			}
		}
	})
	raster.ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for d := -radius; d <= radius; d++ {
				off := (min(max(y+d, 0), h-1)*w + x) * 4
				for c := 0; c < 4; c++ {
					acc[c] += float64(tmp[off+c])
				}
			}
			off := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				s.Pix[off+c] = clampByte(acc[c] / span)
			}
		}
	})
	return s
}
