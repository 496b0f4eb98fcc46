package transform

import (
	"context"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(10 * time.Millisecond)
		return t
	}
}

func TestPadUndoRemovesLastStroke(t *testing.T) {
	p := NewPad(3, color.Black)
	p.now = fixedClock()
	assert.True(t, p.IsEmpty())
	assert.False(t, p.Undo())

	p.Begin(10, 10, 0)
	p.Move(20, 20, 0)
	p.End()
	p.Begin(30, 10, 0)
	p.Move(40, 30, 0)
	p.End()
	require.Len(t, p.Strokes(), 2)

	assert.True(t, p.Undo())
	require.Len(t, p.Strokes(), 1)
	assert.Equal(t, 20.0, p.Strokes()[0].Points[1].X)

	p.Clear()
	assert.True(t, p.IsEmpty())
}

func TestSegmentWidth(t *testing.T) {
	a := Point{X: 0, Y: 0}
	assert.InDelta(t, 2*1.2, segmentWidth(2, a, Point{X: 0, Y: 0, T: 10 * time.Millisecond}), 1e-9)
	fast := segmentWidth(2, a, Point{X: 100, T: 10 * time.Millisecond})
	assert.InDelta(t, 1.0, fast, 1e-9)
	assert.InDelta(t, 2*1.2, segmentWidth(2, a, Point{Pressure: 1}), 1e-9)
	assert.InDelta(t, 2*0.5, segmentWidth(2, a, Point{Pressure: 0.0001}), 1e-3)
}

func TestPadRenderTrimmed(t *testing.T) {
	p := NewPad(4, color.Black)
	p.now = fixedClock()
	p.Begin(50, 50, 0)
	p.Move(60, 52, 0)
	p.Move(70, 50, 0)
	p.Move(80, 55, 0)
	p.End()

	b, ok := p.Bounds()
	require.True(t, ok)

	full, err := p.Render(context.Background(), 200, 100, color.White, false)
	require.NoError(t, err)
	assert.Equal(t, 200, full.Width)
	assert.Less(t, full.At(60, 51).R, uint8(128))

	trimmed, err := p.Render(context.Background(), 200, 100, nil, true)
	require.NoError(t, err)
	assert.Equal(t, b.Dx(), trimmed.Width)
	assert.Equal(t, b.Dy(), trimmed.Height)
	assert.Equal(t, uint8(0), trimmed.At(0, 0).A)

	svg, err := p.SVG(200, 100, nil, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Equal(t, 2, strings.Count(svg, "<path"))
}

func TestPadRenderEmpty(t *testing.T) {
	_, err := NewPad(2, nil).Render(context.Background(), 10, 10, nil, false)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}
