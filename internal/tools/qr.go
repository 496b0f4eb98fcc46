package tools

import (
	"context"
	"image/color"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/qr"
)

type QR struct {
	deps Deps
}

func NewQR(deps Deps) *QR {
	return &QR{deps: deps}
}

type QREncodeRequest struct {
	Data       string
	ECC        qr.ECC
	Size       int
	Foreground color.Color
	Background color.Color
	Format     codec.Format
	Quality    float64
	Save       bool
}

func (q *QR) Encode(ctx context.Context, req QREncodeRequest) (export.Artifact, error) {
	art, err := q.encode(ctx, req)
	return art, q.deps.done(ctx, "qr", err, "")
}

func (q *QR) encode(ctx context.Context, req QREncodeRequest) (export.Artifact, error) {
	m, err := qr.NewMatrix(req.Data, req.ECC)
	if err != nil {
		return export.Artifact{}, err
	}
	opts := qr.Options{ECC: req.ECC, Size: req.Size, Foreground: req.Foreground, Background: req.Background}

	var art export.Artifact
	if req.Format == codec.SVG {
		svg, err := m.SVG(opts)
		if err != nil {
			return export.Artifact{}, err
		}
		art = export.Artifact{Bytes: []byte(svg), Format: codec.SVG, MimeType: codec.SVG.MimeType(), Pages: 1}
	} else {
		s, err := m.Render(opts)
		if err != nil {
			return export.Artifact{}, err
		}
		if art, err = q.deps.encode(ctx, s, req.Format, req.Quality); err != nil {
			return export.Artifact{}, err
		}
	}

	if req.Save {
		err = q.deps.save(ctx, history.QRHistory, domain.KindQR, map[string]any{
			"mode": "generate",
			"data": req.Data,
			"ecc":  req.ECC,
		})
	}
	return art, err
}

func (q *QR) Decode(ctx context.Context, asset domain.RawAsset, save bool) (string, error) {
	text, err := q.decode(ctx, asset, save)
	return text, q.deps.done(ctx, "qr", err, "")
}

func (q *QR) decode(ctx context.Context, asset domain.RawAsset, save bool) (string, error) {
	s, err := q.deps.decode(ctx, asset)
	if err != nil {
		return "", err
	}
	text, err := qr.Decode(ctx, s)
	if err != nil {
		return "", err
	}
	if save {
		err = q.deps.save(ctx, history.QRHistory, domain.KindQR, map[string]any{
			"mode": "scan",
			"data": text,
		})
	}
	return text, err
}
