package tools

import (
	"context"
	"image/color"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/transform"
)

const (
	DefaultSignatureWidth  = 600
	DefaultSignatureHeight = 200
)

type Signature struct {
	deps Deps
}

func NewSignature(deps Deps) *Signature {
	return &Signature{deps: deps}
}

// SignatureExport controls the output. A nil Background gives a transparent
// PNG; JPEG falls back to white.
type SignatureExport struct {
	Format     codec.Format
	Quality    float64
	Width      int
	Height     int
	Background color.Color
	Trim       bool
	Save       bool
}

func (s *Signature) Export(ctx context.Context, pad *transform.Pad, opts SignatureExport) (export.Artifact, error) {
	art, err := s.export(ctx, pad, opts)
	return art, s.deps.done(ctx, "signature", err, "Signature exported")
}

func (s *Signature) export(ctx context.Context, pad *transform.Pad, opts SignatureExport) (export.Artifact, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultSignatureWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultSignatureHeight
	}
	if opts.Format == "" {
		opts.Format = codec.PNG
	}

	var art export.Artifact
	switch opts.Format {
	case codec.SVG:
		svg, err := pad.SVG(opts.Width, opts.Height, opts.Background, opts.Trim)
		if err != nil {
			return export.Artifact{}, err
		}
		art = export.Artifact{Bytes: []byte(svg), Format: codec.SVG, MimeType: codec.SVG.MimeType(), Pages: 1}
	default:
		bg := opts.Background
		if bg == nil && opts.Format.Lossy() {
			bg = color.White
		}
		surface, err := pad.Render(ctx, opts.Width, opts.Height, bg, opts.Trim)
		if err != nil {
			return export.Artifact{}, err
		}
		if art, err = s.deps.encode(ctx, surface, opts.Format, opts.Quality); err != nil {
			return export.Artifact{}, err
		}
	}

	if opts.Save {
		if err := s.deps.save(ctx, history.SignatureHistory, domain.KindSignature, map[string]any{
			"width":   opts.Width,
			"height":  opts.Height,
			"strokes": pad.Strokes(),
		}); err != nil {
			return art, err
		}
	}
	return art, nil
}
