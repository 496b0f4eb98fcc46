package export

import (
	"context"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

type Options struct {
	Format  codec.Format
	Quality float64
	Page    PageOptions
	// Names labels ZIP entries; missing names fall back to page-NNN.
	Names []string
}

type Artifact struct {
	Bytes    []byte
	Format   codec.Format
	MimeType string
	Pages    int
}

func (a Artifact) Filename(stem string) string {
	return stem + "." + a.Format.Extension()
}

type Exporter struct {
	encoder     codec.Encoder
	newDocument func() Document
}

func New(encoder codec.Encoder) *Exporter {
	return &Exporter{encoder: encoder, newDocument: NewPDFDocument}
}

// WithDocument swaps the PDF backend.
func (e *Exporter) WithDocument(newDocument func() Document) *Exporter {
	cp := *e
	cp.newDocument = newDocument
	return &cp
}

// Export encodes surfaces in order. Raster formats take exactly one surface;
// PDF and ZIP take one or more.
func (e *Exporter) Export(ctx context.Context, surfaces []*raster.Surface, opts Options) (Artifact, error) {
	if len(surfaces) == 0 {
		return Artifact{}, fmt.Errorf("%w: nothing to export", domain.ErrInvalidParameters)
	}
	format := opts.Format
	if format == "" {
		format = codec.PNG
	}
	switch {
	case format == codec.PDF:
		return e.exportPDF(ctx, surfaces, opts.Page)
	case format == codec.ZIP:
		return e.exportZIP(ctx, surfaces, opts)
	case format.Raster():
		if len(surfaces) != 1 {
			return Artifact{}, fmt.Errorf("%w: %s holds one image, got %d", domain.ErrInvalidParameters, format, len(surfaces))
		}
		data, err := e.encoder.Encode(ctx, surfaces[0], format, opts.Quality)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Bytes: data, Format: format, MimeType: format.MimeType(), Pages: 1}, nil
	case format == codec.SVG:
		return Artifact{}, fmt.Errorf("%w: svg output is only produced from vector sources", domain.ErrInvalidParameters)
	}
	return Artifact{}, fmt.Errorf("%w: cannot export %s", domain.ErrInvalidParameters, format)
}

func (e *Exporter) exportPDF(ctx context.Context, surfaces []*raster.Surface, page PageOptions) (Artifact, error) {
	if page == (PageOptions{}) {
		page = DefaultPageOptions()
	}
	imgFormat := page.ImageFormat
	if imgFormat == "" {
		imgFormat = codec.JPEG
	}
	quality := page.Quality
	if imgFormat == codec.PNG {
		quality = 0
	}

	// validate every page before encoding anything
	for _, s := range surfaces {
		if _, _, _, err := page.Layout(s.Width, s.Height); err != nil {
			return Artifact{}, err
		}
	}

	doc := e.newDocument()
	for i, s := range surfaces {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		pageW, pageH, r, _ := page.Layout(s.Width, s.Height)
		data, err := e.encoder.Encode(ctx, s, imgFormat, quality)
		if err != nil {
			return Artifact{}, err
		}
		if err := doc.AddPage(pageW, pageH); err != nil {
			return Artifact{}, err
		}
		if err := doc.DrawImage(fmt.Sprintf("page-%03d", i+1), data, imgFormat, r); err != nil {
			return Artifact{}, err
		}
	}
	out, err := doc.Bytes()
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Bytes: out, Format: codec.PDF, MimeType: codec.PDF.MimeType(), Pages: len(surfaces)}, nil
}

func (e *Exporter) exportZIP(ctx context.Context, surfaces []*raster.Surface, opts Options) (Artifact, error) {
	entryFormat := opts.Page.ImageFormat
	if entryFormat == "" {
		entryFormat = codec.PNG
	}
	quality := opts.Quality
	if !entryFormat.Lossy() {
		quality = 0
	}
	archive := NewArchive()
	for i, s := range surfaces {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		data, err := e.encoder.Encode(ctx, s, entryFormat, quality)
		if err != nil {
			return Artifact{}, err
		}
		name := fmt.Sprintf("page-%03d", i+1)
		if i < len(opts.Names) && opts.Names[i] != "" {
			name = opts.Names[i]
		}
		archive.Add(name+"."+entryFormat.Extension(), data)
	}
	out, err := archive.Bytes()
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Bytes: out, Format: codec.ZIP, MimeType: codec.ZIP.MimeType(), Pages: len(surfaces)}, nil
}
