// Package tools assembles the pipeline pieces into the user-facing tools.
// Every tool takes its collaborators at construction, reports each outcome
// to its notification sink and returns the error unchanged.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/notes"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/transform"
	"github.com/rs/zerolog"
)

// Codec is the decode and encode surface the tools use.
type Codec interface {
	codec.Decoder
	codec.Encoder
}

type Deps struct {
	Codec    Codec
	Exporter *export.Exporter
	History  *history.Collections
	Sink     notify.Sink
	Logger   zerolog.Logger
	// Observe is called once per operation with its outcome.
	Observe func(tool string, err error)
}

func NewDeps(c *codec.Codec, hist *history.Collections, sink notify.Sink, logger zerolog.Logger) Deps {
	if sink == nil {
		sink = notify.Nop()
	}
	return Deps{
		Codec:    c,
		Exporter: export.New(c),
		History:  hist,
		Sink:     sink,
		Logger:   logger,
	}
}

func (d Deps) done(ctx context.Context, tool string, err error, success string) error {
	if d.Observe != nil {
		d.Observe(tool, err)
	}
	if err != nil {
		d.Logger.Debug().Err(err).Str("tool", tool).Msg("tool operation failed")
		return notify.Report(ctx, d.Sink, err)
	}
	if success != "" {
		notify.Success(ctx, d.Sink, success)
	}
	return nil
}

func (d Deps) save(ctx context.Context, collection string, kind domain.RecordKind, payload any) error {
	if d.History == nil {
		return nil
	}
	store, err := d.History.Get(collection)
	if err != nil {
		return err
	}
	_, err = store.Add(ctx, kind, payload)
	return err
}

func (d Deps) decode(ctx context.Context, asset domain.RawAsset) (*raster.Surface, error) {
	return d.Codec.Decode(ctx, asset)
}

func (d Deps) encode(ctx context.Context, s *raster.Surface, format codec.Format, quality float64) (export.Artifact, error) {
	if format == "" {
		format = codec.PNG
	}
	return d.Exporter.Export(ctx, []*raster.Surface{s}, export.Options{Format: format, Quality: quality})
}

// move relocates items[from] to index to, shifting the items between.
func move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return items, fmt.Errorf("%w: move %d -> %d with %d items", domain.ErrInvalidParameters, from, to, len(items))
	}
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]T{item}, items[to:]...)...)
	return items, nil
}

func remove[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, fmt.Errorf("%w: index %d with %d items", domain.ErrInvalidParameters, index, len(items))
	}
	return append(items[:index], items[index+1:]...), nil
}

// Toolbox holds one instance of every tool over shared dependencies.
type Toolbox struct {
	Deps      Deps
	Hash      *Hash
	Passwords *Passwords
	QR        *QR
	Signature *Signature
	IDPhoto   *IDPhoto
	Collage   *Collage
	Enhance   *Enhance
	Convert   *Convert
	Watermark *Watermark
	Notepad   *Notepad
	Limits    config.LimitsConfig
}

func NewToolbox(deps Deps, limits config.LimitsConfig, notepad *notes.Notepad) *Toolbox {
	return &Toolbox{
		Deps:      deps,
		Hash:      NewHash(deps, limits.HashMaxBytes),
		Passwords: NewPasswords(deps),
		QR:        NewQR(deps),
		Signature: NewSignature(deps),
		IDPhoto:   NewIDPhoto(deps),
		Collage:   NewCollage(deps),
		Enhance:   NewEnhance(deps),
		Convert:   NewConvert(deps),
		Watermark: NewWatermark(deps, transform.DiffusionInpainter{}),
		Notepad:   NewNotepad(deps, notepad),
		Limits:    limits,
	}
}

// NewScanner and NewPhotoPDF hold per-session page lists, so each caller
// gets its own.
func (t *Toolbox) NewScanner() *Scanner   { return NewScanner(t.Deps, nil) }
func (t *Toolbox) NewPhotoPDF() *PhotoPDF { return NewPhotoPDF(t.Deps) }

func (t *Toolbox) NewCapture(camera source.Camera, timeout time.Duration) *Capture {
	return NewCapture(t.Deps, camera, timeout)
}

func (t *Toolbox) ImageAcquirer() source.Acquirer    { return source.ImagePreset(t.Limits.ImageMaxBytes) }
func (t *Toolbox) DocumentAcquirer() source.Acquirer { return source.DocumentPreset(t.Limits.PDFMaxBytes) }
