package transform

import (
	"context"
	"math"

	"github.com/dunamismax/artifactkit/internal/raster"
)

// Resize scales to Width, keeping the aspect ratio unless Height is also set.
type Resize struct {
	Width  int
	Height int
}

func (Resize) Name() string { return "resize" }

func (r Resize) Apply(_ context.Context, s *raster.Surface) (*raster.Surface, error) {
	if r.Width <= 0 {
		return nil, invalid("resize requires width > 0")
	}
	if r.Height < 0 {
		return nil, invalid("resize height must not be negative")
	}
	if r.Width == s.Width && (r.Height == 0 || r.Height == s.Height) {
		return s, nil
	}

	height := r.Height
	if height == 0 {
		height = int(math.Round(float64(s.Height) * float64(r.Width) / float64(s.Width)))
		if height < 1 {
			height = 1
		}
	}
	return raster.Resize(s, r.Width, height)
}
