// Package raster holds the in-memory RGBA surface shared by every pipeline
// stage, plus the placement math used to fit one image into another.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/dunamismax/artifactkit/internal/domain"
)

// MaxDimension bounds either side of a surface.
const MaxDimension = 16384

// Surface is a non-premultiplied RGBA8 pixel buffer. A surface is owned by
// exactly one stage at a time; stages that keep the input must Clone it.
type Surface struct {
	Width  int
	Height int
	Pix    []byte
}

func New(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d", domain.ErrInvalidParameters, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: surface size %dx%d exceeds %d", domain.ErrInvalidParameters, width, height, MaxDimension)
	}
	return &Surface{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}, nil
}

func Filled(width, height int, c color.Color) (*Surface, error) {
	s, err := New(width, height)
	if err != nil {
		return nil, err
	}
	s.Fill(c)
	return s, nil
}

// FromImage copies img into a new surface. The result shares no memory with img.
func FromImage(img image.Image) (*Surface, error) {
	b := img.Bounds()
	s, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	if src, ok := img.(*image.NRGBA); ok && src.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		copy(s.Pix, src.Pix)
		return s, nil
	}
	draw.Draw(s.Image(), s.Image().Bounds(), img, b.Min, draw.Src)
	return s, nil
}

// Image returns an image view backed by the surface's pixels.
func (s *Surface) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    s.Pix,
		Stride: s.Width * 4,
		Rect:   image.Rect(0, 0, s.Width, s.Height),
	}
}

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

func (s *Surface) Clone() *Surface {
	pix := make([]byte, len(s.Pix))
	copy(pix, s.Pix)
	return &Surface{Width: s.Width, Height: s.Height, Pix: pix}
}

func (s *Surface) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: surface is nil", domain.ErrInvalidParameters)
	}
	if s.Width <= 0 || s.Height <= 0 || len(s.Pix) != s.Width*s.Height*4 {
		return fmt.Errorf("%w: surface %dx%d has %d bytes", domain.ErrInvalidParameters, s.Width, s.Height, len(s.Pix))
	}
	return nil
}

func (s *Surface) Fill(c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i] = n.R
		s.Pix[i+1] = n.G
		s.Pix[i+2] = n.B
		s.Pix[i+3] = n.A
	}
}

func (s *Surface) At(x, y int) color.NRGBA {
	i := (y*s.Width + x) * 4
	return color.NRGBA{R: s.Pix[i], G: s.Pix[i+1], B: s.Pix[i+2], A: s.Pix[i+3]}
}

func (s *Surface) Set(x, y int, c color.NRGBA) {
	i := (y*s.Width + x) * 4
	s.Pix[i] = c.R
	s.Pix[i+1] = c.G
	s.Pix[i+2] = c.B
	s.Pix[i+3] = c.A
}

// Crop copies the part of s inside r.
func (s *Surface) Crop(r image.Rectangle) (*Surface, error) {
	r = r.Intersect(s.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: crop area is empty", domain.ErrInvalidParameters)
	}
	out, err := New(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < r.Dy(); y++ {
		srcOff := ((r.Min.Y+y)*s.Width + r.Min.X) * 4
		copy(out.Pix[y*out.Width*4:(y+1)*out.Width*4], s.Pix[srcOff:srcOff+r.Dx()*4])
	}
	return out, nil
}

// Flatten composites s over bg and returns an opaque copy.
func (s *Surface) Flatten(bg color.Color) *Surface {
	out := &Surface{Width: s.Width, Height: s.Height, Pix: make([]byte, len(s.Pix))}
	out.Fill(bg)
	draw.Draw(out.Image(), out.Bounds(), s.Image(), image.Point{}, draw.Over)
	return out
}
