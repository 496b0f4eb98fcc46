//go:build !govips || !cgo

package codec

import (
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

func Startup() error {
	return nil
}

func Shutdown() {}

type stubNative struct{}

func newNative() native {
	return stubNative{}
}

func (stubNative) encodeWebP(*raster.Surface, int) ([]byte, error) {
	return nil, fmt.Errorf("%w: webp export requires govips build tag", domain.ErrExport)
}

func (stubNative) pdfPageCount([]byte) (int, error) {
	return 0, fmt.Errorf("%w: pdf rendering requires govips build tag", domain.ErrExport)
}

func (stubNative) renderPDFPage([]byte, int, float64) (*raster.Surface, error) {
	return nil, fmt.Errorf("%w: pdf rendering requires govips build tag", domain.ErrExport)
}
