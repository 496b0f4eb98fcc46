//go:build gocv

package source

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dunamismax/artifactkit/internal/raster"
	"gocv.io/x/gocv"
)

type gocvCamera struct {
	maxDevices int
}

// DefaultCamera probes local capture devices through OpenCV.
func DefaultCamera() Camera {
	return gocvCamera{maxDevices: 4}
}

func (c gocvCamera) Devices(ctx context.Context) ([]Device, error) {
	var devices []Device
	for i := 0; i < c.maxDevices; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if vc.IsOpened() {
			devices = append(devices, Device{ID: strconv.Itoa(i), Label: fmt.Sprintf("video%d", i)})
		}
		_ = vc.Close()
	}
	return devices, nil
}

func (c gocvCamera) Open(_ context.Context, deviceID string) (Stream, error) {
	index, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q", deviceID)
	}
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open video capture %d: %w", index, err)
	}
	return &gocvStream{capture: vc}, nil
}

type gocvStream struct {
	capture *gocv.VideoCapture
}

func (s *gocvStream) Frame(ctx context.Context) (*raster.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := gocv.NewMat()
	defer frame.Close()

	if ok := s.capture.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("read frame: device returned no data")
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return raster.FromImage(img)
}

func (s *gocvStream) Close() error {
	return s.capture.Close()
}
