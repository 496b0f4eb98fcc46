package tools

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
)

type Convert struct {
	deps Deps
}

func NewConvert(deps Deps) *Convert {
	return &Convert{deps: deps}
}

func (c *Convert) Convert(ctx context.Context, asset domain.RawAsset, format codec.Format, quality float64, save bool) (export.Artifact, error) {
	art, err := c.convert(ctx, asset, format, quality, save)
	return art, c.deps.done(ctx, "convert", err, "")
}

func (c *Convert) convert(ctx context.Context, asset domain.RawAsset, format codec.Format, quality float64, save bool) (export.Artifact, error) {
	if _, err := codec.ResolveQuality(format, quality); err != nil {
		return export.Artifact{}, err
	}
	s, err := c.deps.decode(ctx, asset)
	if err != nil {
		return export.Artifact{}, err
	}
	art, err := c.deps.encode(ctx, s, format, quality)
	if err != nil {
		return export.Artifact{}, err
	}
	if save {
		err = c.deps.save(ctx, history.ConvertHistory, domain.KindConversion, map[string]any{
			"name":      asset.Filename,
			"from":      asset.MimeType,
			"to":        art.Format,
			"in_bytes":  asset.SizeBytes,
			"out_bytes": len(art.Bytes),
		})
	}
	return art, err
}

// Batch converts every asset to format and packs the results into a ZIP.
// Any failure fails the whole batch.
func (c *Convert) Batch(ctx context.Context, assets []domain.RawAsset, format codec.Format, quality float64) (export.Artifact, error) {
	art, err := c.batch(ctx, assets, format, quality)
	return art, c.deps.done(ctx, "convert", err, "Conversion finished")
}

func (c *Convert) batch(ctx context.Context, assets []domain.RawAsset, format codec.Format, quality float64) (export.Artifact, error) {
	archive := export.NewArchive()
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return export.Artifact{}, err
		}
		art, err := c.convert(ctx, a, format, quality, false)
		if err != nil {
			return export.Artifact{}, err
		}
		archive.Add(art.Filename(stem(a.Filename)), art.Bytes)
	}
	data, err := archive.Bytes()
	if err != nil {
		return export.Artifact{}, err
	}
	return export.Artifact{Bytes: data, Format: codec.ZIP, MimeType: codec.ZIP.MimeType(), Pages: archive.Len()}, nil
}

func stem(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if name == "" || name == "." {
		return "image"
	}
	return name
}
