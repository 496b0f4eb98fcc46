// Package transform implements the pixel stages of the artifact pipeline.
//
// A stage takes ownership of the surface passed to Apply. It may mutate it in
// place or return a new one, but it must validate its parameters before it
// writes a single pixel so that a failed stage leaves its input untouched.
package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
)

type Stage interface {
	Name() string
	Apply(ctx context.Context, s *raster.Surface) (*raster.Surface, error)
}

// Chain runs stages in order, handing each output to the next stage.
func Chain(ctx context.Context, s *raster.Surface, stages ...Stage) (*raster.Surface, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cur := s
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := st.Apply(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		cur = out
	}
	return cur, nil
}

// FromSteps builds stages from the serialized batch job steps.
func FromSteps(steps []domain.PipelineStep) ([]Stage, error) {
	stages := make([]Stage, 0, len(steps))
	for i, step := range steps {
		switch strings.ToLower(strings.TrimSpace(step.Action)) {
		case "resize":
			stages = append(stages, Resize{Width: step.Width})
		case "watermark":
			if step.Watermark == nil {
				return nil, fmt.Errorf("%w: steps[%d] watermark requires settings", domain.ErrInvalidParameters, i)
			}
			stages = append(stages, Watermark{
				Text:    step.Watermark.Text,
				Opacity: step.Watermark.Opacity,
				Gravity: step.Watermark.Gravity,
			})
		case "adjust":
			if step.Adjust == nil {
				return nil, fmt.Errorf("%w: steps[%d] adjust requires settings", domain.ErrInvalidParameters, i)
			}
			stages = append(stages, Adjust{
				Brightness: step.Adjust.Brightness,
				Contrast:   step.Adjust.Contrast,
				Saturation: step.Adjust.Saturation,
				Hue:        step.Adjust.Hue,
			})
		case "filter":
			stages = append(stages, Filter{Kind: step.Filter})
		default:
			return nil, fmt.Errorf("%w: steps[%d] unknown action %q", domain.ErrInvalidParameters, i, step.Action)
		}
	}
	return stages, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidParameters}, args...)...)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
