package tools

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/transform"
)

type Watermark struct {
	deps      Deps
	inpainter transform.Inpainter
}

func NewWatermark(deps Deps, inpainter transform.Inpainter) *Watermark {
	if inpainter == nil {
		inpainter = transform.DiffusionInpainter{}
	}
	return &Watermark{deps: deps, inpainter: inpainter}
}

// Remove fills the masked regions from their surroundings.
func (w *Watermark) Remove(ctx context.Context, asset domain.RawAsset, mask []image.Rectangle, format codec.Format, quality float64) (export.Artifact, error) {
	art, err := w.run(ctx, asset, format, quality, transform.Inpaint{Inpainter: w.inpainter, Mask: mask})
	return art, w.deps.done(ctx, "watermark", err, "Watermark removed")
}

// AddRequest stamps Text, a Logo image, or both.
type AddRequest struct {
	Text    string
	Opacity float64
	Gravity string
	Color   color.NRGBA
	Logo    *domain.RawAsset
	Corner  string
	Size    int
	Format  codec.Format
	Quality float64
}

func (w *Watermark) Add(ctx context.Context, asset domain.RawAsset, req AddRequest) (export.Artifact, error) {
	art, err := w.add(ctx, asset, req)
	return art, w.deps.done(ctx, "watermark", err, "Watermark added")
}

func (w *Watermark) add(ctx context.Context, asset domain.RawAsset, req AddRequest) (export.Artifact, error) {
	var stages []transform.Stage
	if req.Text != "" {
		stages = append(stages, transform.Watermark{Text: req.Text, Opacity: req.Opacity, Gravity: req.Gravity, Color: req.Color})
	}
	if req.Logo != nil {
		logo, err := w.deps.decode(ctx, *req.Logo)
		if err != nil {
			return export.Artifact{}, err
		}
		stages = append(stages, transform.Overlay{Image: logo, Corner: req.Corner, Size: req.Size, Margin: 12})
	}
	if len(stages) == 0 {
		return export.Artifact{}, fmt.Errorf("%w: watermark needs text or a logo", domain.ErrInvalidParameters)
	}
	return w.run(ctx, asset, req.Format, req.Quality, stages...)
}

func (w *Watermark) run(ctx context.Context, asset domain.RawAsset, format codec.Format, quality float64, stages ...transform.Stage) (export.Artifact, error) {
	s, err := w.deps.decode(ctx, asset)
	if err != nil {
		return export.Artifact{}, err
	}
	out, err := transform.Chain(ctx, s, stages...)
	if err != nil {
		return export.Artifact{}, err
	}
	return w.deps.encode(ctx, out, format, quality)
}
