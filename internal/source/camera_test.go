package source

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	devices  []Device
	err      error
	opened   string
	block    bool
	frameErr error
}

func (c *fakeCamera) Devices(ctx context.Context) ([]Device, error) {
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return c.devices, c.err
}

func (c *fakeCamera) Open(_ context.Context, id string) (Stream, error) {
	c.opened = id
	return fakeStream{err: c.frameErr}, nil
}

type fakeStream struct {
	err error
}

func (s fakeStream) Frame(context.Context) (*raster.Surface, error) {
	if s.err != nil {
		return nil, s.err
	}
	return raster.Filled(4, 3, color.White)
}

func (fakeStream) Close() error { return nil }

func TestPickDevicePrefersRearCamera(t *testing.T) {
	d, err := PickDevice([]Device{
		{ID: "1", Label: "FaceTime HD (front)"},
		{ID: "2", Label: "Back Camera"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", d.ID)

	d, err = PickDevice([]Device{{ID: "9", Label: "USB cam"}})
	require.NoError(t, err)
	assert.Equal(t, "9", d.ID)
}

func TestCaptureSamplesOneFrame(t *testing.T) {
	cam := &fakeCamera{devices: []Device{{ID: "a", Label: "front"}, {ID: "b", Label: "rear"}}}
	s, err := Capture(context.Background(), cam, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Width)
	assert.Equal(t, "b", cam.opened)
}

func TestCaptureFailures(t *testing.T) {
	cases := map[string]*fakeCamera{
		"no devices":        {},
		"permission denied": {err: ErrPermissionDenied},
		"frame error":       {devices: []Device{{ID: "0"}}, frameErr: errors.New("no data")},
		"timeout":           {block: true},
	}
	for name, cam := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Capture(context.Background(), cam, 20*time.Millisecond)
			require.ErrorIs(t, err, domain.ErrCameraUnavailable)
		})
	}
}
