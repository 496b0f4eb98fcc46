package tools

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stillCamera struct {
	devices []source.Device
}

func (c stillCamera) Devices(context.Context) ([]source.Device, error) { return c.devices, nil }

func (c stillCamera) Open(context.Context, string) (source.Stream, error) { return stillStream{}, nil }

type stillStream struct{}

func (stillStream) Frame(context.Context) (*raster.Surface, error) {
	s, err := raster.New(16, 12)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = 200, 40, 40, 255
	}
	return s, nil
}

func (stillStream) Close() error { return nil }

func TestCapturePhoto(t *testing.T) {
	deps, sink := newDeps(t)
	c := NewCapture(deps, stillCamera{devices: []source.Device{{ID: "0", Label: "video0"}}}, time.Second)

	art, err := c.Photo(context.Background(), CaptureRequest{Filter: "grayscale", Save: true})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", art.MimeType)
	assert.True(t, bytes.HasPrefix(art.Bytes, []byte{0xFF, 0xD8}))
	assert.Equal(t, notify.LevelSuccess, sink.last())

	recs := records(t, deps, history.PhotoHistory)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.KindCapture, recs[0].Kind)

	surface, err := codec.New().Decode(context.Background(), domain.RawAsset{Bytes: art.Bytes, MimeType: art.MimeType})
	require.NoError(t, err)
	assert.Equal(t, 16, surface.Width)
	assert.Equal(t, 12, surface.Height)
}

func TestCaptureWithoutDevices(t *testing.T) {
	deps, sink := newDeps(t)
	c := NewCapture(deps, stillCamera{}, time.Second)

	_, err := c.Photo(context.Background(), CaptureRequest{Format: codec.PNG})
	assert.ErrorIs(t, err, domain.ErrCameraUnavailable)
	assert.Equal(t, notify.LevelError, sink.last())
	assert.Empty(t, records(t, deps, history.PhotoHistory))
}
