package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

const DefaultCameraTimeout = 10 * time.Second

var ErrPermissionDenied = errors.New("camera permission denied")

type Device struct {
	ID    string
	Label string
}

type Camera interface {
	Devices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, deviceID string) (Stream, error)
}

// Stream is a live feed; each Frame call samples the current frame.
type Stream interface {
	Frame(ctx context.Context) (*raster.Surface, error)
	Close() error
}

// PickDevice prefers a back-facing camera when labels allow telling.
func PickDevice(devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: no video devices", domain.ErrCameraUnavailable)
	}
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		if strings.Contains(label, "back") || strings.Contains(label, "rear") {
			return d, nil
		}
	}
	return devices[0], nil
}

// Capture opens the preferred device and samples a single frame. Any failure,
// including the timeout elapsing, is reported as ErrCameraUnavailable.
func Capture(ctx context.Context, cam Camera, timeout time.Duration) (*raster.Surface, error) {
	if cam == nil {
		return nil, fmt.Errorf("%w: no camera configured", domain.ErrCameraUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultCameraTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		surface *raster.Surface
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := captureFrame(ctx, cam)
		done <- result{surface: s, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, domain.ErrCameraUnavailable) {
				return nil, res.err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, res.err)
		}
		return res.surface, nil
	}
}

func captureFrame(ctx context.Context, cam Camera) (*raster.Surface, error) {
	devices, err := cam.Devices(ctx)
	if err != nil {
		return nil, err
	}
	device, err := PickDevice(devices)
	if err != nil {
		return nil, err
	}
	stream, err := cam.Open(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device.Label, err)
	}
	defer stream.Close()
	return stream.Frame(ctx)
}
