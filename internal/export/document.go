package export

import (
	"bytes"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/go-pdf/fpdf"
)

// Document is a paged output. Coordinates are millimetres from the top-left.
type Document interface {
	AddPage(widthMM, heightMM float64) error
	DrawImage(name string, data []byte, format codec.Format, r raster.Rect) error
	Bytes() ([]byte, error)
}

type pdfDocument struct {
	pdf *fpdf.Fpdf
}

func NewPDFDocument() Document {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: 210, Ht: 297},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("artifactkit", true)
	return &pdfDocument{pdf: pdf}
}

func (d *pdfDocument) AddPage(widthMM, heightMM float64) error {
	d.pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthMM, Ht: heightMM})
	return d.err("add page")
}

func (d *pdfDocument) DrawImage(name string, data []byte, format codec.Format, r raster.Rect) error {
	var opts fpdf.ImageOptions
	switch format {
	case codec.JPEG:
		opts.ImageType = "JPG"
	case codec.PNG:
		opts.ImageType = "PNG"
	default:
		return fmt.Errorf("%w: cannot embed %s in pdf", domain.ErrExport, format)
	}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.err("register image"); err != nil {
		return err
	}
	d.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	return d.err("draw image")
}

func (d *pdfDocument) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: write pdf: %v", domain.ErrExport, err)
	}
	return buf.Bytes(), nil
}

func (d *pdfDocument) err(op string) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrExport, op, err)
	}
	return nil
}
