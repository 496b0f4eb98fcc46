package tools

import (
	"context"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/pipeline"
	"github.com/dunamismax/artifactkit/internal/transform"
)

type Enhance struct {
	deps Deps
}

func NewEnhance(deps Deps) *Enhance {
	return &Enhance{deps: deps}
}

// EnhanceRequest applies Adjust first, then the named filter preset.
type EnhanceRequest struct {
	Adjust  transform.Adjust
	Filter  string
	Format  codec.Format
	Quality float64
}

func (r EnhanceRequest) Stages() []transform.Stage {
	var stages []transform.Stage
	if !r.Adjust.IsIdentity() {
		stages = append(stages, r.Adjust)
	}
	if r.Filter != "" && r.Filter != "original" {
		stages = append(stages, transform.Filter{Kind: r.Filter})
	}
	return stages
}

func (e *Enhance) Apply(ctx context.Context, asset domain.RawAsset, req EnhanceRequest) (export.Artifact, error) {
	art, err := e.apply(ctx, asset, req)
	return art, e.deps.done(ctx, "enhance", err, "")
}

func (e *Enhance) apply(ctx context.Context, asset domain.RawAsset, req EnhanceRequest) (export.Artifact, error) {
	s, err := e.deps.decode(ctx, asset)
	if err != nil {
		return export.Artifact{}, err
	}
	out, err := transform.Chain(ctx, s, req.Stages()...)
	if err != nil {
		return export.Artifact{}, err
	}
	return e.deps.encode(ctx, out, req.Format, req.Quality)
}

// Preview decodes asset once and returns a session that re-renders it as
// the settings change.
func (e *Enhance) Preview(ctx context.Context, asset domain.RawAsset, window time.Duration, onRender func(pipeline.Frame)) (*pipeline.Preview, error) {
	s, err := e.deps.decode(ctx, asset)
	if err != nil {
		return nil, e.deps.done(ctx, "enhance", err, "")
	}
	return pipeline.NewPreview(s, window, onRender), nil
}

func (e *Enhance) Filters() []string {
	return transform.FilterNames()
}
