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
	"github.com/dunamismax/artifactkit/internal/transform"
)

type ScannedPage struct {
	ID      string          `json:"id"`
	Outline transform.Quad  `json:"outline"`
	Filter  string          `json:"filter"`
	Surface *raster.Surface `json:"-"`
}

// Scanner collects document pages for one PDF.
type Scanner struct {
	deps     Deps
	detector transform.EdgeDetector

	mu    sync.Mutex
	pages []ScannedPage
}

func NewScanner(deps Deps, detector transform.EdgeDetector) *Scanner {
	if detector == nil {
		detector = transform.DefaultSobelDetector()
	}
	return &Scanner{deps: deps, detector: detector}
}

// Detect finds the document outline without adding a page.
func (sc *Scanner) Detect(ctx context.Context, asset domain.RawAsset) (transform.Quad, error) {
	q, err := sc.detect(ctx, asset)
	return q, sc.deps.done(ctx, "scanner", err, "")
}

func (sc *Scanner) detect(ctx context.Context, asset domain.RawAsset) (transform.Quad, error) {
	s, err := sc.deps.decode(ctx, asset)
	if err != nil {
		return transform.Quad{}, err
	}
	return sc.detector.Detect(ctx, s)
}

// AddPage decodes, crops to outline (detected when nil) and filters a page.
func (sc *Scanner) AddPage(ctx context.Context, asset domain.RawAsset, filter string, outline *transform.Quad) (ScannedPage, error) {
	p, err := sc.addPage(ctx, asset, filter, outline)
	return p, sc.deps.done(ctx, "scanner", err, "")
}

func (sc *Scanner) addPage(ctx context.Context, asset domain.RawAsset, filter string, outline *transform.Quad) (ScannedPage, error) {
	s, err := sc.deps.decode(ctx, asset)
	if err != nil {
		return ScannedPage{}, err
	}
	var q transform.Quad
	if outline != nil {
		q = *outline
	} else if q, err = sc.detector.Detect(ctx, s); err != nil {
		return ScannedPage{}, err
	}
	out, err := transform.Chain(ctx, s, transform.Scan{Detector: sc.detector, Outline: q, Filter: filter})
	if err != nil {
		return ScannedPage{}, err
	}

	page := ScannedPage{ID: id.New(), Outline: q, Filter: filter, Surface: out}
	sc.mu.Lock()
	sc.pages = append(sc.pages, page)
	sc.mu.Unlock()
	return page, nil
}

func (sc *Scanner) Pages() []ScannedPage {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]ScannedPage(nil), sc.pages...)
}

func (sc *Scanner) Move(from, to int) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	pages, err := move(sc.pages, from, to)
	if err != nil {
		return err
	}
	sc.pages = pages
	return nil
}

func (sc *Scanner) Remove(index int) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	pages, err := remove(sc.pages, index)
	if err != nil {
		return err
	}
	sc.pages = pages
	return nil
}

func (sc *Scanner) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.pages = nil
}

// Export writes every page, in order, into one PDF and records the batch.
func (sc *Scanner) Export(ctx context.Context, name string, page export.PageOptions) (export.Artifact, error) {
	art, err := sc.export(ctx, name, page)
	return art, sc.deps.done(ctx, "scanner", err, "Document saved")
}

func (sc *Scanner) export(ctx context.Context, name string, page export.PageOptions) (export.Artifact, error) {
	pages := sc.Pages()
	surfaces := make([]*raster.Surface, len(pages))
	for i, p := range pages {
		surfaces[i] = p.Surface
	}
	art, err := sc.deps.Exporter.Export(ctx, surfaces, export.Options{Format: codec.PDF, Page: page})
	if err != nil {
		return export.Artifact{}, err
	}
	if name == "" {
		name = "scan"
	}
	err = sc.deps.save(ctx, history.ScanHistory, domain.KindScanBatch, map[string]any{
		"name":  name,
		"pages": len(pages),
		"bytes": len(art.Bytes),
	})
	return art, err
}
