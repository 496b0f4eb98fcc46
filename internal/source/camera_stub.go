//go:build !gocv

package source

import (
	"context"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
)

type noCamera struct{}

// DefaultCamera reports no devices when built without the gocv tag.
func DefaultCamera() Camera {
	return noCamera{}
}

func (noCamera) Devices(context.Context) ([]Device, error) {
	return nil, nil
}

func (noCamera) Open(context.Context, string) (Stream, error) {
	return nil, fmt.Errorf("%w: built without camera support", domain.ErrCameraUnavailable)
}
