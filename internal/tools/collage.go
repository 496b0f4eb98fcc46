package tools

import (
	"context"
	"image/color"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/transform"
)

const DefaultCollageSize = 1200

type Collage struct {
	deps Deps
}

func NewCollage(deps Deps) *Collage {
	return &Collage{deps: deps}
}

type CollageRequest struct {
	Layout     string
	Width      int
	Height     int
	Cols       int
	Rows       int
	Spacing    int
	Radius     float64
	Background color.Color
	Format     codec.Format
	Quality    float64
	Save       bool
}

func (c *Collage) Make(ctx context.Context, assets []domain.RawAsset, req CollageRequest) (export.Artifact, error) {
	art, err := c.make(ctx, assets, req)
	return art, c.deps.done(ctx, "collage", err, "Collage created")
}

func (c *Collage) make(ctx context.Context, assets []domain.RawAsset, req CollageRequest) (export.Artifact, error) {
	images := make([]*raster.Surface, 0, len(assets))
	for _, a := range assets {
		s, err := c.deps.decode(ctx, a)
		if err != nil {
			return export.Artifact{}, err
		}
		images = append(images, s)
	}
	if req.Width <= 0 {
		req.Width = DefaultCollageSize
	}
	if req.Height <= 0 {
		req.Height = req.Width
	}
	if req.Layout == "" {
		req.Layout = transform.LayoutGrid
	}

	out, err := transform.Collage{
		Images:     images,
		Layout:     req.Layout,
		Cols:       req.Cols,
		Rows:       req.Rows,
		Spacing:    req.Spacing,
		Radius:     req.Radius,
		Background: req.Background,
	}.Render(req.Width, req.Height)
	if err != nil {
		return export.Artifact{}, err
	}
	art, err := c.deps.encode(ctx, out, req.Format, req.Quality)
	if err != nil {
		return export.Artifact{}, err
	}
	if req.Save {
		err = c.deps.save(ctx, history.PhotoHistory, domain.KindCollage, map[string]any{
			"layout": req.Layout,
			"images": len(images),
			"width":  req.Width,
			"height": req.Height,
		})
	}
	return art, err
}
