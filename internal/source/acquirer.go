package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultImageMaxBytes = 10 << 20
	DefaultHashMaxBytes  = 100 << 20
	DefaultPDFMaxBytes   = 50 << 20
)

// Upload is an input handed over by an adapter. Size is the declared size,
// or a negative value when unknown.
type Upload struct {
	Reader   io.Reader
	Size     int64
	MimeType string
	Filename string
}

// Acquirer validates and reads inputs into RawAssets.
type Acquirer struct {
	Accept   []string
	MaxBytes int64
}

func ImagePreset(maxBytes int64) Acquirer {
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxBytes
	}
	return Acquirer{Accept: []string{"image/*"}, MaxBytes: maxBytes}
}

func DocumentPreset(maxBytes int64) Acquirer {
	if maxBytes <= 0 {
		maxBytes = DefaultPDFMaxBytes
	}
	return Acquirer{Accept: []string{"image/*", "application/pdf"}, MaxBytes: maxBytes}
}

// HashPreset accepts any type.
func HashPreset(maxBytes int64) Acquirer {
	if maxBytes <= 0 {
		maxBytes = DefaultHashMaxBytes
	}
	return Acquirer{MaxBytes: maxBytes}
}

func (a Acquirer) Acquire(ctx context.Context, up Upload) (domain.RawAsset, error) {
	if up.Reader == nil {
		return domain.RawAsset{}, fmt.Errorf("%w: no input", domain.ErrAcquisition)
	}
	if err := ctx.Err(); err != nil {
		return domain.RawAsset{}, err
	}
	if a.MaxBytes > 0 && up.Size > a.MaxBytes {
		return domain.RawAsset{}, tooLarge(up.Filename, up.Size, a.MaxBytes)
	}

	declared := normalizeMime(up.MimeType)
	if !isGeneric(declared) && !a.accepts(declared) {
		return domain.RawAsset{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, declared)
	}

	r := up.Reader
	if a.MaxBytes > 0 {
		r = io.LimitReader(up.Reader, a.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RawAsset{}, fmt.Errorf("%w: read %s: %v", domain.ErrAcquisition, up.Filename, err)
	}
	if a.MaxBytes > 0 && int64(len(data)) > a.MaxBytes {
		return domain.RawAsset{}, tooLarge(up.Filename, int64(len(data)), a.MaxBytes)
	}
	if len(data) == 0 {
		return domain.RawAsset{}, fmt.Errorf("%w: %s is empty", domain.ErrAcquisition, displayName(up.Filename))
	}

	if isGeneric(declared) {
		declared = normalizeMime(mimetype.Detect(data).String())
		if !a.accepts(declared) {
			return domain.RawAsset{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, declared)
		}
	}

	return domain.NewRawAsset(data, declared, up.Filename), nil
}

// FromFile checks the size on disk before reading anything.
func (a Acquirer) FromFile(ctx context.Context, path string) (domain.RawAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RawAsset{}, fmt.Errorf("%w: %s does not exist", domain.ErrAcquisition, path)
		}
		return domain.RawAsset{}, fmt.Errorf("%w: stat %s: %v", domain.ErrAcquisition, path, err)
	}
	if info.IsDir() {
		return domain.RawAsset{}, fmt.Errorf("%w: %s is a directory", domain.ErrAcquisition, path)
	}
	if a.MaxBytes > 0 && info.Size() > a.MaxBytes {
		return domain.RawAsset{}, tooLarge(path, info.Size(), a.MaxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.RawAsset{}, fmt.Errorf("%w: open %s: %v", domain.ErrAcquisition, path, err)
	}
	defer f.Close()

	return a.Acquire(ctx, Upload{
		Reader:   f,
		Size:     info.Size(),
		MimeType: mimeFromExtension(path),
		Filename: filepath.Base(path),
	})
}

// FromReader reads a stream of unknown length.
func (a Acquirer) FromReader(ctx context.Context, r io.Reader, declaredMime, name string) (domain.RawAsset, error) {
	return a.Acquire(ctx, Upload{Reader: r, Size: -1, MimeType: declaredMime, Filename: name})
}

// FromClipboard wraps pasted bytes. The type is always sniffed.
func (a Acquirer) FromClipboard(ctx context.Context, data []byte) (domain.RawAsset, error) {
	return a.Acquire(ctx, Upload{
		Reader:   bytes.NewReader(data),
		Size:     int64(len(data)),
		Filename: "clipboard",
	})
}

func (a Acquirer) accepts(mime string) bool {
	if len(a.Accept) == 0 {
		return true
	}
	for _, pattern := range a.Accept {
		pattern = normalizeMime(pattern)
		switch {
		case pattern == "*/*" || pattern == mime:
			return true
		case strings.HasSuffix(pattern, "/*") && strings.HasPrefix(mime, strings.TrimSuffix(pattern, "*")):
			return true
		}
	}
	return false
}

func normalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}

func isGeneric(mime string) bool {
	return mime == "" || mime == "application/octet-stream"
}

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}

func tooLarge(name string, size, limit int64) error {
	return fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrFileTooLarge, displayName(name), size, limit)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "input"
	}
	return name
}
