package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

const (
	PageA4     = "a4"
	PageLetter = "letter"
	PageLegal  = "legal"
	PageCustom = "custom"

	OrientationAuto      = "auto"
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

var pageSizesMM = map[string][2]float64{
	PageA4:     {210, 297},
	PageLetter: {215.9, 279.4},
	PageLegal:  {215.9, 355.6},
}

// PageOptions controls PDF page geometry. Sizes are portrait millimetres;
// Orientation rotates them.
type PageOptions struct {
	Size        string
	WidthMM     float64
	HeightMM    float64
	Orientation string
	MarginMM    float64
	KeepAspect  bool
	ImageFormat codec.Format
	Quality     float64
}

func DefaultPageOptions() PageOptions {
	return PageOptions{
		Size:        PageA4,
		Orientation: OrientationAuto,
		MarginMM:    10,
		KeepAspect:  true,
		ImageFormat: codec.JPEG,
	}
}

// PageOptionsFrom applies job page settings over the defaults.
func PageOptionsFrom(p *domain.PageSettings, imageFormat string, quality float64) (PageOptions, error) {
	opts := DefaultPageOptions()
	if p != nil {
		if p.Size != "" {
			opts.Size = p.Size
		}
		opts.WidthMM = p.WidthMM
		opts.HeightMM = p.HeightMM
		if p.Orientation != "" {
			opts.Orientation = p.Orientation
		}
		opts.MarginMM = p.MarginMM
		if p.KeepAspect != nil {
			opts.KeepAspect = *p.KeepAspect
		}
	}
	if imageFormat != "" {
		f, err := codec.ParseFormat(imageFormat)
		if err != nil {
			return PageOptions{}, err
		}
		opts.ImageFormat = f
	}
	opts.Quality = quality
	return opts, opts.validate()
}

func (p PageOptions) validate() error {
	if _, _, err := p.baseSize(); err != nil {
		return err
	}
	if p.MarginMM < 0 || math.IsNaN(p.MarginMM) {
		return fmt.Errorf("%w: margin %.1fmm", domain.ErrInvalidParameters, p.MarginMM)
	}
	switch p.Orientation {
	case "", OrientationAuto, OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: orientation %q", domain.ErrInvalidParameters, p.Orientation)
	}
	switch p.ImageFormat {
	case "", codec.JPEG, codec.PNG:
	default:
		return fmt.Errorf("%w: pdf pages embed jpeg or png, not %s", domain.ErrInvalidParameters, p.ImageFormat)
	}
	return nil
}

func (p PageOptions) baseSize() (float64, float64, error) {
	size := strings.ToLower(p.Size)
	if size == "" {
		size = PageA4
	}
	if size == PageCustom {
		if p.WidthMM <= 0 || p.HeightMM <= 0 {
			return 0, 0, fmt.Errorf("%w: custom page needs width and height", domain.ErrInvalidParameters)
		}
		return p.WidthMM, p.HeightMM, nil
	}
	wh, ok := pageSizesMM[size]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown page size %q", domain.ErrInvalidParameters, p.Size)
	}
	return wh[0], wh[1], nil
}

// Layout returns the page size and the image placement for an image of
// imgW x imgH pixels.
func (p PageOptions) Layout(imgW, imgH int) (pageW, pageH float64, r raster.Rect, err error) {
	if err := p.validate(); err != nil {
		return 0, 0, raster.Rect{}, err
	}
	pageW, pageH, _ = p.baseSize()
	landscape := false
	switch p.Orientation {
	case OrientationLandscape:
		landscape = true
	case "", OrientationAuto:
		landscape = imgW > imgH
	}
	if landscape != (pageW > pageH) {
		pageW, pageH = pageH, pageW
	}

	areaW, areaH := pageW-2*p.MarginMM, pageH-2*p.MarginMM
	if areaW <= 0 || areaH <= 0 {
		return 0, 0, raster.Rect{}, fmt.Errorf("%w: fit to page too small: %.1fmm margins on %.1fx%.1fmm",
			domain.ErrInvalidParameters, p.MarginMM, pageW, pageH)
	}
	if p.KeepAspect {
		r = raster.Contain(imgW, imgH, areaW, areaH)
	} else {
		r = raster.Rect{W: areaW, H: areaH}
	}
	return pageW, pageH, r.Offset(p.MarginMM, p.MarginMM), nil
}
