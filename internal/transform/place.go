package transform

import (
	"context"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Place draws the input onto a new Width x Height canvas using the fit policy.
// Zoom, PosX and PosY apply to cover placement only.
type Place struct {
	Width      int
	Height     int
	Fit        raster.Fit
	Zoom       float64
	PosX       float64
	PosY       float64
	Background color.Color
}

func (Place) Name() string { return "place" }

func (p Place) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, invalid("place target %dx%d", p.Width, p.Height)
	}
	if p.Zoom < 0 || math.IsNaN(p.Zoom) {
		return nil, invalid("zoom %.2f", p.Zoom)
	}
	bg := p.Background
	if bg == nil {
		bg = color.White
	}
	out, err := raster.Filled(p.Width, p.Height, bg)
	if err != nil {
		return nil, err
	}

	var r raster.Rect
	switch p.Fit {
	case raster.FitCover:
		zoom := p.Zoom
		if zoom == 0 {
			zoom = 1
		}
		r = raster.Cover(s.Width, s.Height, float64(p.Width), float64(p.Height), zoom, p.PosX, p.PosY)
	default:
		r = raster.Place(p.Fit, s.Width, s.Height, float64(p.Width), float64(p.Height))
	}
	raster.DrawScaled(out, s.Image(), r, image.Rectangle{})
	return out, nil
}

type Crop struct {
	Rect image.Rectangle
}

func (Crop) Name() string { return "crop" }

func (c Crop) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	if c.Rect.Dx() <= 0 || c.Rect.Dy() <= 0 {
		return nil, invalid("crop area %v is empty", c.Rect)
	}
	return s.Crop(c.Rect)
}

// PhotoPreset is a printed photo size in millimetres.
type PhotoPreset struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

var photoPresets = map[string]PhotoPreset{
	"passport": {Key: "passport", Label: "Passport (35x45 mm)", WidthMM: 35, HeightMM: 45},
	"us":       {Key: "us", Label: "US passport / visa (2x2 in)", WidthMM: 50.8, HeightMM: 50.8},
	"visa":     {Key: "visa", Label: "Visa (33x48 mm)", WidthMM: 33, HeightMM: 48},
	"schengen": {Key: "schengen", Label: "Schengen visa (35x45 mm)", WidthMM: 35, HeightMM: 45},
	"china":    {Key: "china", Label: "China visa (33x48 mm)", WidthMM: 33, HeightMM: 48},
	"india":    {Key: "india", Label: "India (51x51 mm)", WidthMM: 51, HeightMM: 51},
	"uk":       {Key: "uk", Label: "UK (35x45 mm)", WidthMM: 35, HeightMM: 45},
	"canada":   {Key: "canada", Label: "Canada (50x70 mm)", WidthMM: 50, HeightMM: 70},
	"japan":    {Key: "japan", Label: "Japan (35x45 mm)", WidthMM: 35, HeightMM: 45},
	"id":       {Key: "id", Label: "ID card (25x35 mm)", WidthMM: 25, HeightMM: 35},
}

func LookupPhotoPreset(key string) (PhotoPreset, bool) {
	p, ok := photoPresets[key]
	return p, ok
}

func PhotoPresets() []PhotoPreset {
	out := make([]PhotoPreset, 0, len(photoPresets))
	for _, p := range photoPresets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Pixels converts the preset to pixel dimensions at dpi.
func (p PhotoPreset) Pixels(dpi int) (int, int) {
	return MMToPixels(p.WidthMM, dpi), MMToPixels(p.HeightMM, dpi)
}

func MMToPixels(mm float64, dpi int) int {
	return int(math.Round(mm / 25.4 * float64(dpi)))
}

// Sheet tiles copies of a photo onto a print sheet, leaving gap pixels
// between copies and around the border.
func Sheet(photo *raster.Surface, sheetW, sheetH, copies, gap int) (*raster.Surface, error) {
	if copies <= 0 {
		return nil, invalid("sheet needs at least one copy")
	}
	cols := (sheetW - gap) / (photo.Width + gap)
	rows := (sheetH - gap) / (photo.Height + gap)
	if cols <= 0 || rows <= 0 {
		return nil, invalid("photo %dx%d does not fit on sheet %dx%d", photo.Width, photo.Height, sheetW, sheetH)
	}
	sheet, err := raster.Filled(sheetW, sheetH, color.White)
	if err != nil {
		return nil, err
	}
	copies = min(copies, cols*rows)
	dst := sheet.Image()
	for i := 0; i < copies; i++ {
		x := gap + (i%cols)*(photo.Width+gap)
		y := gap + (i/cols)*(photo.Height+gap)
		for row := 0; row < photo.Height; row++ {
			copy(dst.Pix[dst.PixOffset(x, y+row):], photo.Pix[row*photo.Width*4:(row+1)*photo.Width*4])
		}
	}
	return sheet, nil
}
