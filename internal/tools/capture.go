package tools

import (
	"context"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/transform"
)

// Capture takes a single photo from a camera.
type Capture struct {
	deps    Deps
	camera  source.Camera
	timeout time.Duration
}

func NewCapture(deps Deps, camera source.Camera, timeout time.Duration) *Capture {
	return &Capture{deps: deps, camera: camera, timeout: timeout}
}

type CaptureRequest struct {
	// Filter is applied to the frame before encoding; "" or "original" keeps it as shot.
	Filter  string
	Format  codec.Format
	Quality float64
	Save    bool
}

func (c *Capture) Photo(ctx context.Context, req CaptureRequest) (export.Artifact, error) {
	art, err := c.photo(ctx, req)
	return art, c.deps.done(ctx, "capture", err, "Photo captured")
}

func (c *Capture) photo(ctx context.Context, req CaptureRequest) (export.Artifact, error) {
	if req.Format == "" {
		req.Format = codec.JPEG
	}
	if _, err := codec.ResolveQuality(req.Format, req.Quality); err != nil {
		return export.Artifact{}, err
	}
	frame, err := source.Capture(ctx, c.camera, c.timeout)
	if err != nil {
		return export.Artifact{}, err
	}
	if req.Filter != "" && req.Filter != "original" {
		if frame, err = transform.Chain(ctx, frame, transform.Filter{Kind: req.Filter}); err != nil {
			return export.Artifact{}, err
		}
	}
	art, err := c.deps.encode(ctx, frame, req.Format, req.Quality)
	if err != nil {
		return export.Artifact{}, err
	}
	if req.Save {
		err = c.deps.save(ctx, history.PhotoHistory, domain.KindCapture, map[string]any{
			"width":  frame.Width,
			"height": frame.Height,
			"filter": req.Filter,
			"format": art.Format,
			"bytes":  len(art.Bytes),
		})
	}
	return art, err
}
