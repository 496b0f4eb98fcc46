package tools

import (
	"context"
	"fmt"
	"image/color"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/transform"
)

const (
	DefaultPhotoDPI = 300
	sheetWidthMM    = 101.6
	sheetHeightMM   = 152.4
	sheetGapMM      = 2
)

type IDPhoto struct {
	deps Deps
}

func NewIDPhoto(deps Deps) *IDPhoto {
	return &IDPhoto{deps: deps}
}

// IDPhotoRequest picks a preset, or a custom size when Preset is empty.
// PosX and PosY are percentages and default to the centre.
type IDPhotoRequest struct {
	Preset      string
	WidthMM     float64
	HeightMM    float64
	DPI         int
	Zoom        float64
	PosX        *float64
	PosY        *float64
	Background  color.Color
	Format      codec.Format
	Quality     float64
	SheetCopies int
	Save        bool
}

func (req IDPhotoRequest) size() (int, int, error) {
	dpi := req.DPI
	if dpi <= 0 {
		dpi = DefaultPhotoDPI
	}
	if req.Preset != "" {
		p, ok := transform.LookupPhotoPreset(req.Preset)
		if !ok {
			return 0, 0, fmt.Errorf("%w: unknown photo preset %q", domain.ErrInvalidParameters, req.Preset)
		}
		w, h := p.Pixels(dpi)
		return w, h, nil
	}
	if req.WidthMM <= 0 || req.HeightMM <= 0 {
		return 0, 0, fmt.Errorf("%w: custom photo size needs width and height", domain.ErrInvalidParameters)
	}
	return transform.MMToPixels(req.WidthMM, dpi), transform.MMToPixels(req.HeightMM, dpi), nil
}

// Presets lists the built-in document sizes, sorted by key.
func (p *IDPhoto) Presets() []transform.PhotoPreset { return transform.PhotoPresets() }

func (p *IDPhoto) Make(ctx context.Context, asset domain.RawAsset, req IDPhotoRequest) (export.Artifact, error) {
	art, err := p.make(ctx, asset, req)
	return art, p.deps.done(ctx, "idphoto", err, "Photo created")
}

func (p *IDPhoto) make(ctx context.Context, asset domain.RawAsset, req IDPhotoRequest) (export.Artifact, error) {
	w, h, err := req.size()
	if err != nil {
		return export.Artifact{}, err
	}
	src, err := p.deps.decode(ctx, asset)
	if err != nil {
		return export.Artifact{}, err
	}
	posX, posY := 50.0, 50.0
	if req.PosX != nil {
		posX = *req.PosX
	}
	if req.PosY != nil {
		posY = *req.PosY
	}
	out, err := transform.Chain(ctx, src, transform.Place{
		Width:      w,
		Height:     h,
		Fit:        raster.FitCover,
		Zoom:       req.Zoom,
		PosX:       posX,
		PosY:       posY,
		Background: req.Background,
	})
	if err != nil {
		return export.Artifact{}, err
	}

	if req.SheetCopies > 0 {
		dpi := req.DPI
		if dpi <= 0 {
			dpi = DefaultPhotoDPI
		}
		out, err = transform.Sheet(out,
			transform.MMToPixels(sheetWidthMM, dpi),
			transform.MMToPixels(sheetHeightMM, dpi),
			req.SheetCopies,
			transform.MMToPixels(sheetGapMM, dpi))
		if err != nil {
			return export.Artifact{}, err
		}
	}

	art, err := p.deps.encode(ctx, out, req.Format, req.Quality)
	if err != nil {
		return export.Artifact{}, err
	}
	if req.Save {
		err = p.deps.save(ctx, history.PhotoHistory, domain.KindIDPhoto, map[string]any{
			"preset": req.Preset,
			"width":  w,
			"height": h,
			"copies": req.SheetCopies,
		})
	}
	return art, err
}
