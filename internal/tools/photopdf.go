package tools

import (
	"context"
	"sync"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/id"
	"github.com/dunamismax/artifactkit/internal/raster"
)

type PhotoItem struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Surface *raster.Surface `json:"-"`
}

// PhotoPDF keeps an ordered list of images for one PDF.
type PhotoPDF struct {
	deps Deps

	mu    sync.Mutex
	items []PhotoItem
}

func NewPhotoPDF(deps Deps) *PhotoPDF {
	return &PhotoPDF{deps: deps}
}

func (p *PhotoPDF) Add(ctx context.Context, asset domain.RawAsset) (PhotoItem, error) {
	s, err := p.deps.decode(ctx, asset)
	if err != nil {
		return PhotoItem{}, p.deps.done(ctx, "photopdf", err, "")
	}
	item := PhotoItem{ID: id.New(), Name: asset.Filename, Surface: s}
	p.mu.Lock()
	p.items = append(p.items, item)
	p.mu.Unlock()
	return item, nil
}

func (p *PhotoPDF) Items() []PhotoItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PhotoItem(nil), p.items...)
}

func (p *PhotoPDF) Move(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := move(p.items, from, to)
	if err != nil {
		return err
	}
	p.items = items
	return nil
}

func (p *PhotoPDF) Remove(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := remove(p.items, index)
	if err != nil {
		return err
	}
	p.items = items
	return nil
}

func (p *PhotoPDF) Export(ctx context.Context, page export.PageOptions) (export.Artifact, error) {
	art, err := p.export(ctx, page)
	return art, p.deps.done(ctx, "photopdf", err, "PDF created")
}

func (p *PhotoPDF) export(ctx context.Context, page export.PageOptions) (export.Artifact, error) {
	items := p.Items()
	surfaces := make([]*raster.Surface, len(items))
	names := make([]string, len(items))
	for i, it := range items {
		surfaces[i] = it.Surface
		names[i] = it.Name
	}
	art, err := p.deps.Exporter.Export(ctx, surfaces, export.Options{Format: codec.PDF, Page: page})
	if err != nil {
		return export.Artifact{}, err
	}
	err = p.deps.save(ctx, history.DocumentBatches, domain.KindPDF, map[string]any{
		"pages": len(items),
		"names": names,
		"size":  page.Size,
	})
	return art, err
}
