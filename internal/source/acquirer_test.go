package source

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) {
	panic("reader must not be touched")
}

func TestAcquireRejectsDeclaredOversizeWithoutReading(t *testing.T) {
	a := HashPreset(100 << 20)
	_, err := a.Acquire(context.Background(), Upload{
		Reader:   panicReader{},
		Size:     101 << 20,
		Filename: "big.bin",
	})
	require.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestAcquireEnforcesLimitWhileReading(t *testing.T) {
	a := Acquirer{MaxBytes: 16}
	_, err := a.Acquire(context.Background(), Upload{
		Reader: io.LimitReader(zeroReader{}, 17),
		Size:   -1,
	})
	require.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestAcquireRejectsDeclaredType(t *testing.T) {
	a := ImagePreset(0)
	_, err := a.Acquire(context.Background(), Upload{
		Reader:   bytes.NewReader([]byte("%PDF-1.4")),
		Size:     8,
		MimeType: "application/pdf",
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestAcquireSniffsGenericType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))

	a := ImagePreset(0)
	asset, err := a.FromClipboard(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.MimeType)
	assert.Equal(t, int64(buf.Len()), asset.SizeBytes)

	_, err = a.FromClipboard(context.Background(), []byte("just some text"))
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestAcquireEmptyInput(t *testing.T) {
	_, err := HashPreset(0).Acquire(context.Background(), Upload{Reader: bytes.NewReader(nil)})
	require.ErrorIs(t, err, domain.ErrAcquisition)
}

func TestFromFileChecksSizeOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 64), 0o644))

	_, err := Acquirer{MaxBytes: 32}.FromFile(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrFileTooLarge)

	asset, err := HashPreset(0).FromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", asset.Filename)
	assert.Equal(t, "text/plain", asset.MimeType)

	_, err = HashPreset(0).FromFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, domain.ErrAcquisition)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
