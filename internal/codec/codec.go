package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultSVGSize is used for SVGs that carry no usable viewBox.
const DefaultSVGSize = 512

type Decoder interface {
	Decode(ctx context.Context, asset domain.RawAsset) (*raster.Surface, error)
}

type Encoder interface {
	Encode(ctx context.Context, s *raster.Surface, format Format, quality float64) ([]byte, error)
}

type PageRenderer interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
	RenderPage(ctx context.Context, pdf []byte, index int, scale float64) (*raster.Surface, error)
}

// native is the libvips-backed part of the codec. Without the govips build
// tag it reports ErrExport for every call.
type native interface {
	encodeWebP(s *raster.Surface, quality int) ([]byte, error)
	pdfPageCount(pdf []byte) (int, error)
	renderPDFPage(pdf []byte, index int, scale float64) (*raster.Surface, error)
}

type Codec struct {
	native native
}

func New() *Codec {
	return &Codec{native: newNative()}
}

func (c *Codec) Decode(ctx context.Context, asset domain.RawAsset) (*raster.Surface, error) {
	return c.DecodePage(ctx, asset, 0)
}

// DecodePage decodes page index of a PDF asset. For every other type index must be 0.
func (c *Codec) DecodePage(ctx context.Context, asset domain.RawAsset, index int) (*raster.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(asset.Bytes) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrDecode, asset.Filename)
	}
	if asset.IsPDF() || bytes.HasPrefix(asset.Bytes, []byte("%PDF-")) {
		return c.RenderPage(ctx, asset.Bytes, index, 1)
	}
	if index != 0 {
		return nil, fmt.Errorf("%w: page %d requested from single-image %s", domain.ErrInvalidParameters, index, asset.Filename)
	}
	if asset.MimeType == "image/svg+xml" || looksLikeSVG(asset.Bytes) {
		return decodeSVG(asset.Bytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(asset.Bytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, asset.Filename, err)
	}
	if cfg.Width > raster.MaxDimension || cfg.Height > raster.MaxDimension {
		return nil, fmt.Errorf("%w: %s is %dx%d", domain.ErrDecode, asset.Filename, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(asset.Bytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, asset.Filename, err)
	}
	s, err := raster.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return s, nil
}

func (c *Codec) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.native.pdfPageCount(pdf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Codec) RenderPage(ctx context.Context, pdf []byte, index int, scale float64) (*raster.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: page index %d", domain.ErrInvalidParameters, index)
	}
	if scale <= 0 {
		scale = 1
	}
	return c.native.renderPDFPage(pdf, index, scale)
}

func (c *Codec) Encode(ctx context.Context, s *raster.Surface, format Format, quality float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !format.Raster() {
		return nil, fmt.Errorf("%w: %s is not a raster format", domain.ErrInvalidParameters, format)
	}
	q, err := ResolveQuality(format, quality)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case PNG:
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = encoder.Encode(&buf, s.Image())
	case JPEG:
		err = jpeg.Encode(&buf, s.Flatten(color.White).Image(), &jpeg.Options{Quality: percent(q)})
	case GIF:
		err = gif.Encode(&buf, s.Image(), &gif.Options{NumColors: 256})
	case BMP:
		err = bmp.Encode(&buf, s.Image())
	case TIFF:
		err = tiff.Encode(&buf, s.Image(), &tiff.Options{Compression: tiff.Deflate})
	case WebP:
		return c.native.encodeWebP(s, percent(q))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", domain.ErrExport, format, err)
	}
	return buf.Bytes(), nil
}

func percent(q float64) int {
	p := int(math.Round(q * 100))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

func looksLikeSVG(data []byte) bool {
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		(bytes.HasPrefix(header, []byte("<?xml")) && bytes.Contains(header, []byte("<svg")))
}

func decodeSVG(data []byte) (*raster.Surface, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse svg: %v", domain.ErrDecode, err)
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		w, h = DefaultSVGSize, DefaultSVGSize
	}
	s, err := raster.New(w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	img := s.Image()
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return s, nil
}
