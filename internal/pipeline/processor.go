package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/transform"
)

const SourceTypeLocalFile = domain.SourceTypeLocalFile

var (
	ErrUnsupportedSourceType = errors.New("unsupported source_type")
	ErrMissingKeys           = errors.New("object_keys must contain at least one key")
)

// Request is one batch export: every key is decoded, run through Steps and
// written into a single PDF or ZIP in key order.
type Request struct {
	JobID       string
	SourceType  string
	ObjectKeys  []string
	Steps       []domain.PipelineStep
	Format      string
	Page        *domain.PageSettings
	ImageFormat string
	Quality     float64
}

func RequestFromJob(job domain.ExportJob) Request {
	return Request{
		JobID:       job.ID,
		SourceType:  job.SourceType,
		ObjectKeys:  job.ObjectKeys,
		Steps:       job.Steps,
		Format:      job.Format,
		Page:        job.Page,
		ImageFormat: job.ImageFormat,
		Quality:     job.Quality,
	}
}

type Output struct {
	Path     string
	Format   string
	MimeType string
	Bytes    int
	Pages    int
}

type Result struct {
	Output      Output
	Inputs      int
	SourceBytes int64
}

type Fetcher interface {
	Fetch(ctx context.Context, req Request, key string) (domain.RawAsset, error)
}

type Emitter interface {
	Emit(ctx context.Context, req Request, art export.Artifact) (Output, error)
}

// Decoder is what the processor needs from the codec: plain decoding plus
// page access for PDF inputs.
type Decoder interface {
	codec.Decoder
	DecodePage(ctx context.Context, asset domain.RawAsset, index int) (*raster.Surface, error)
	PageCount(ctx context.Context, pdf []byte) (int, error)
}

type Processor struct {
	fetcher  Fetcher
	decoder  Decoder
	exporter *export.Exporter
	emitter  Emitter
}

func NewProcessor(fetcher Fetcher, c *codec.Codec, emitter Emitter) *Processor {
	return &Processor{
		fetcher:  fetcher,
		decoder:  c,
		exporter: export.New(c),
		emitter:  emitter,
	}
}

func NewLocalProcessor(outputDir string, acq source.Acquirer) (*Processor, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("output directory is required")
	}
	return NewProcessor(LocalFileFetcher{Acquirer: acq}, codec.New(), LocalFileEmitter{OutputDir: outputDir}), nil
}

// Process runs a batch export. Inputs are decoded one at a time and the
// output is only emitted after every input succeeded.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return Result{}, errors.New("job_id is required")
	}
	if len(req.ObjectKeys) == 0 {
		return Result{}, ErrMissingKeys
	}
	format, err := codec.ParseFormat(req.Format)
	if err != nil {
		return Result{}, err
	}
	if format != codec.PDF && format != codec.ZIP {
		return Result{}, fmt.Errorf("%w: batch format must be pdf or zip", domain.ErrInvalidParameters)
	}
	stages, err := transform.FromSteps(req.Steps)
	if err != nil {
		return Result{}, err
	}
	page, err := export.PageOptionsFrom(req.Page, req.ImageFormat, req.Quality)
	if err != nil {
		return Result{}, err
	}

	var (
		surfaces []*raster.Surface
		names    []string
		total    int64
	)
	for _, key := range req.ObjectKeys {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		asset, err := p.fetcher.Fetch(ctx, req, key)
		if err != nil {
			return Result{}, fmt.Errorf("fetch stage key=%s: %w", key, err)
		}
		total += asset.SizeBytes

		decoded, err := p.decodeAll(ctx, asset)
		if err != nil {
			return Result{}, fmt.Errorf("decode stage key=%s: %w", key, err)
		}
		for i, s := range decoded {
			out, err := transform.Chain(ctx, s, stages...)
			if err != nil {
				return Result{}, fmt.Errorf("transform stage key=%s: %w", key, err)
			}
			surfaces = append(surfaces, out)
			name := strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
			if len(decoded) > 1 {
				name = fmt.Sprintf("%s-%d", name, i+1)
			}
			names = append(names, name)
		}
	}

	art, err := p.exporter.Export(ctx, surfaces, export.Options{
		Format:  format,
		Quality: req.Quality,
		Page:    page,
		Names:   names,
	})
	if err != nil {
		return Result{}, fmt.Errorf("export stage: %w", err)
	}
	out, err := p.emitter.Emit(ctx, req, art)
	if err != nil {
		return Result{}, fmt.Errorf("emit stage: %w", err)
	}
	return Result{Output: out, Inputs: len(req.ObjectKeys), SourceBytes: total}, nil
}

// Run decodes a single asset, applies stages and exports the result. The
// decoded surface is owned by the run, so a failure leaves nothing behind.
func (p *Processor) Run(ctx context.Context, asset domain.RawAsset, stages []transform.Stage, opts export.Options) (export.Artifact, error) {
	s, err := p.decoder.Decode(ctx, asset)
	if err != nil {
		return export.Artifact{}, err
	}
	out, err := transform.Chain(ctx, s, stages...)
	if err != nil {
		return export.Artifact{}, err
	}
	return p.exporter.Export(ctx, []*raster.Surface{out}, opts)
}

func (p *Processor) Exporter() *export.Exporter { return p.exporter }

func (p *Processor) decodeAll(ctx context.Context, asset domain.RawAsset) ([]*raster.Surface, error) {
	if !asset.IsPDF() {
		s, err := p.decoder.Decode(ctx, asset)
		if err != nil {
			return nil, err
		}
		return []*raster.Surface{s}, nil
	}
	n, err := p.decoder.PageCount(ctx, asset.Bytes)
	if err != nil {
		return nil, err
	}
	out := make([]*raster.Surface, 0, n)
	for i := 0; i < n; i++ {
		s, err := p.decoder.DecodePage(ctx, asset, i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type LocalFileFetcher struct {
	Acquirer source.Acquirer
}

func (f LocalFileFetcher) Fetch(ctx context.Context, req Request, key string) (domain.RawAsset, error) {
	if !strings.EqualFold(req.SourceType, SourceTypeLocalFile) {
		return domain.RawAsset{}, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}
	return f.Acquirer.FromFile(ctx, key)
}

// SourceRouter picks a fetcher by the request's source type.
type SourceRouter map[string]Fetcher

func (r SourceRouter) Fetch(ctx context.Context, req Request, key string) (domain.RawAsset, error) {
	f, ok := r[strings.ToLower(req.SourceType)]
	if !ok {
		return domain.RawAsset{}, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}
	return f.Fetch(ctx, req, key)
}

type LocalFileEmitter struct {
	OutputDir string
}

func (e LocalFileEmitter) Emit(_ context.Context, req Request, art export.Artifact) (Output, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Output{}, errors.New("output directory is required")
	}

	jobDir := filepath.Join(e.OutputDir, sanitizePathToken(req.JobID))
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(jobDir, art.Filename("export"))
	if err := os.WriteFile(fullPath, art.Bytes, 0o644); err != nil {
		return Output{}, fmt.Errorf("write output file: %w", err)
	}
	return outputFor(fullPath, art), nil
}

func outputFor(path string, art export.Artifact) Output {
	return Output{
		Path:     path,
		Format:   string(art.Format),
		MimeType: art.MimeType,
		Bytes:    len(art.Bytes),
		Pages:    art.Pages,
	}
}

func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
