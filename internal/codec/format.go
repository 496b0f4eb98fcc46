package codec

import (
	"fmt"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
)

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	SVG  Format = "svg"
	PDF  Format = "pdf"
	ZIP  Format = "zip"
)

// DefaultQuality applies to lossy formats when the caller leaves quality unset.
const DefaultQuality = 0.92

func ParseFormat(in string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(in), "."))); f {
	case "jpg":
		return JPEG, nil
	case "tif":
		return TIFF, nil
	case PNG, JPEG, WebP, GIF, BMP, TIFF, SVG, PDF, ZIP:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported output format %q", domain.ErrInvalidParameters, in)
	}
}

// FormatForMime maps a MIME type to a format, returning "" when unknown.
func FormatForMime(mime string) Format {
	switch strings.ToLower(mime) {
	case "image/png":
		return PNG
	case "image/jpeg", "image/jpg":
		return JPEG
	case "image/webp":
		return WebP
	case "image/gif":
		return GIF
	case "image/bmp", "image/x-ms-bmp":
		return BMP
	case "image/tiff":
		return TIFF
	case "image/svg+xml":
		return SVG
	case "application/pdf":
		return PDF
	case "application/zip":
		return ZIP
	default:
		return ""
	}
}

func (f Format) MimeType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	case GIF:
		return "image/gif"
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	case SVG:
		return "image/svg+xml"
	case PDF:
		return "application/pdf"
	case ZIP:
		return "application/zip"
	default:
		return "image/png"
	}
}

func (f Format) Extension() string {
	if f == "" {
		return "png"
	}
	return string(f)
}

func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}

// Raster reports whether the format encodes a single surface.
func (f Format) Raster() bool {
	switch f {
	case PNG, JPEG, WebP, GIF, BMP, TIFF:
		return true
	default:
		return false
	}
}

// ResolveQuality validates quality against the format. Zero means unset.
func ResolveQuality(f Format, quality float64) (float64, error) {
	if quality < 0 || quality > 1 {
		return 0, fmt.Errorf("%w: quality %.2f outside [0,1]", domain.ErrInvalidParameters, quality)
	}
	if !f.Lossy() {
		if quality != 0 {
			return 0, fmt.Errorf("%w: quality does not apply to %s", domain.ErrInvalidParameters, f)
		}
		return 0, nil
	}
	if quality == 0 {
		return DefaultQuality, nil
	}
	return quality, nil
}
