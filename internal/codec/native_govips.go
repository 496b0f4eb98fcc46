//go:build govips && cgo

package codec

import (
	"bytes"
	"fmt"
	"image/png"
	"math"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

const pdfBaseDPI = 72

type govipsNative struct{}

func (govipsNative) encodeWebP(s *raster.Surface, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image()); err != nil {
		return nil, fmt.Errorf("%w: stage webp source: %v", domain.ErrExport, err)
	}

	img, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: load webp source: %v", domain.ErrExport, err)
	}
	defer img.Close()

	params := vips.NewWebpExportParams()
	if quality > 0 && quality <= 100 {
		params.Quality = quality
	}
	data, _, err := img.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("%w: encode webp: %v", domain.ErrExport, err)
	}
	return data, nil
}

func (govipsNative) pdfPageCount(pdf []byte) (int, error) {
	params := vips.NewImportParams()
	params.Page.Set(0)
	img, err := vips.LoadImageFromBuffer(pdf, params)
	if err != nil {
		return 0, fmt.Errorf("%w: open pdf: %v", domain.ErrDecode, err)
	}
	defer img.Close()
	return max(1, img.Pages()), nil
}

func (govipsNative) renderPDFPage(pdf []byte, index int, scale float64) (*raster.Surface, error) {
	params := vips.NewImportParams()
	params.Page.Set(index)
	params.Density.Set(int(math.Round(pdfBaseDPI * scale)))

	img, err := vips.LoadImageFromBuffer(pdf, params)
	if err != nil {
		return nil, fmt.Errorf("%w: render pdf page %d: %v", domain.ErrDecode, index, err)
	}
	defer img.Close()

	data, _, err := img.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("%w: export pdf page %d: %v", domain.ErrDecode, index, err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode pdf page %d: %v", domain.ErrDecode, index, err)
	}
	return raster.FromImage(decoded)
}
