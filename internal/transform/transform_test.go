package transform

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(t *testing.T, w, h int, c color.NRGBA) *raster.Surface {
	t.Helper()
	s, err := raster.Filled(w, h, c)
	require.NoError(t, err)
	return s
}

func TestChainRunsStagesInOrder(t *testing.T) {
	s := solid(t, 40, 20, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	out, err := Chain(context.Background(), s,
		Resize{Width: 20},
		Filter{Kind: "invert"},
	)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Width)
	assert.Equal(t, 10, out.Height)
	px := out.At(10, 5)
	assert.InDelta(t, 55, int(px.R), 1)
	assert.InDelta(t, 155, int(px.G), 1)
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	s := solid(t, 8, 8, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	_, err := Chain(context.Background(), s,
		Adjust{Brightness: 500},
		Filter{Kind: "invert"},
	)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	assert.Equal(t, uint8(10), s.At(0, 0).R, "failed stage must not touch its input")
}

func TestChainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Chain(ctx, solid(t, 4, 4, color.NRGBA{A: 255}), Filter{Kind: "grayscale"})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFromSteps(t *testing.T) {
	stages, err := FromSteps([]domain.PipelineStep{
		{ID: "a", Action: "resize", Width: 100},
		{ID: "b", Action: "filter", Filter: "sepia"},
		{ID: "c", Action: "adjust", Adjust: &domain.Adjustments{Contrast: 10}},
	})
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "resize", stages[0].Name())
	assert.Equal(t, "filter:sepia", stages[1].Name())

	_, err = FromSteps([]domain.PipelineStep{{ID: "x", Action: "explode"}})
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestAdjustIdentityAndOrder(t *testing.T) {
	s := solid(t, 2, 2, color.NRGBA{R: 100, G: 150, B: 200, A: 255})
	out, err := Adjust{}.Apply(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 100, G: 150, B: 200, A: 255}, out.At(0, 0))

	bright, err := Adjust{Brightness: 20}.Apply(context.Background(), solid(t, 2, 2, color.NRGBA{R: 100, G: 100, B: 100, A: 255}))
	require.NoError(t, err)
	assert.InDelta(t, 120, int(bright.At(1, 1).R), 1)

	gray, err := Adjust{Saturation: -100}.Apply(context.Background(), solid(t, 2, 2, color.NRGBA{R: 255, A: 255}))
	require.NoError(t, err)
	px := gray.At(0, 0)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)
}

func TestFilterUnknownName(t *testing.T) {
	_, err := Filter{Kind: "lomo"}.Apply(context.Background(), solid(t, 2, 2, color.NRGBA{A: 255}))
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	assert.Contains(t, FilterNames(), "vivid")
}

func TestThresholdSplitsTwoTones(t *testing.T) {
	s := solid(t, 10, 10, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			s.Set(x, y, color.NRGBA{R: 180, G: 180, B: 180, A: 255})
		}
	}
	out, err := Filter{Kind: "bw"}.Apply(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.At(1, 1).R)
	assert.Equal(t, uint8(255), out.At(8, 8).R)
}

func TestPlaceCoverFillsCanvas(t *testing.T) {
	s := solid(t, 400, 100, color.NRGBA{B: 255, A: 255})
	out, err := Place{Width: 50, Height: 50, Fit: raster.FitCover, Background: color.White}.Apply(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Width)
	assert.Equal(t, uint8(255), out.At(0, 0).B)
	assert.Equal(t, uint8(0), out.At(0, 0).R)

	contained, err := Place{Width: 50, Height: 50, Fit: raster.FitContain, Background: color.White}.Apply(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), contained.At(25, 1).R, "letterbox keeps the background")
}

func TestCropRejectsEmptyArea(t *testing.T) {
	_, err := Crop{Rect: image.Rect(3, 3, 3, 9)}.Apply(context.Background(), solid(t, 10, 10, color.NRGBA{A: 255}))
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestPhotoPresetPixels(t *testing.T) {
	p, ok := LookupPhotoPreset("passport")
	require.True(t, ok)
	w, h := p.Pixels(300)
	assert.Equal(t, 413, w)
	assert.Equal(t, 531, h)

	visa, ok := LookupPhotoPreset("visa")
	require.True(t, ok)
	w, h = visa.Pixels(300)
	assert.Equal(t, 390, w)
	assert.Equal(t, 567, h)

	sheet, err := Sheet(solid(t, w, h, color.NRGBA{A: 255}), 1800, 1200, 6, 20)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), sheet.At(30, 30).R)
	assert.Equal(t, uint8(255), sheet.At(5, 5).R)
}

func TestCollageLayouts(t *testing.T) {
	imgs := []*raster.Surface{
		solid(t, 30, 20, color.NRGBA{R: 255, A: 255}),
		solid(t, 20, 30, color.NRGBA{G: 255, A: 255}),
		solid(t, 25, 25, color.NRGBA{B: 255, A: 255}),
	}
	for _, layout := range []string{LayoutGrid, LayoutCircle, LayoutHeart, LayoutDiamond} {
		t.Run(layout, func(t *testing.T) {
			c := Collage{Images: imgs, Layout: layout, Spacing: 4}
			cells, err := c.cells(600, 600)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(cells), len(imgs))
			out, err := c.Render(600, 600)
			require.NoError(t, err)
			assert.Equal(t, 600, out.Width)
		})
	}

	grid, err := Collage{Images: imgs, Cols: 3, Rows: 1}.Render(300, 100)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), grid.At(50, 50).R)
	assert.Equal(t, uint8(255), grid.At(150, 50).G)
	assert.Equal(t, uint8(255), grid.At(250, 50).B)

	_, err = Collage{}.Render(100, 100)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = Collage{Images: imgs, Layout: "spiral"}.Render(100, 100)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestCollageGridMustHoldEveryImage(t *testing.T) {
	imgs := make([]*raster.Surface, 6)
	for i := range imgs {
		imgs[i] = solid(t, 10, 10, color.NRGBA{R: uint8(40 * i), A: 255})
	}

	_, err := Collage{Images: imgs, Cols: 2, Rows: 2}.Render(200, 200)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)

	cells, err := Collage{Images: imgs, Cols: 2}.cells(200, 200)
	require.NoError(t, err)
	assert.Len(t, cells, 6)

	cells, err = Collage{Images: imgs, Cols: 2, Rows: 3}.cells(200, 300)
	require.NoError(t, err)
	assert.Len(t, cells, 6)
}

func TestSobelDetectsDocument(t *testing.T) {
	s := solid(t, 200, 160, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
	for y := 40; y < 120; y++ {
		for x := 50; x < 150; x++ {
			s.Set(x, y, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	q, err := DefaultSobelDetector().Detect(context.Background(), s)
	require.NoError(t, err)
	b := q.Bounds()
	assert.InDelta(t, 50, b.Min.X, 3)
	assert.InDelta(t, 40, b.Min.Y, 3)
	assert.InDelta(t, 150, b.Max.X, 3)
	assert.InDelta(t, 120, b.Max.Y, 3)
}

func TestSobelFallsBackToMargin(t *testing.T) {
	s := solid(t, 100, 200, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	q, err := DefaultSobelDetector().Detect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(5, 10, 95, 190), q.Bounds())

	out, err := Scan{Filter: "grayscale"}.Apply(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 90, out.Width)

	_, err = Scan{Filter: "sepia"}.Apply(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestDiffusionInpaintBlendsNeighbours(t *testing.T) {
	s := solid(t, 30, 30, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	mark := image.Rect(10, 10, 20, 20)
	for y := mark.Min.Y; y < mark.Max.Y; y++ {
		for x := mark.Min.X; x < mark.Max.X; x++ {
			s.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	out, err := Inpaint{Mask: []image.Rectangle{mark}}.Apply(context.Background(), s)
	require.NoError(t, err)
	px := out.At(15, 15)
	assert.InDelta(t, 100, int(px.R), 2)
	assert.InDelta(t, 100, int(px.G), 2)

	_, err = DiffusionInpainter{}.Inpaint(context.Background(), s, nil)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestOverlayCorner(t *testing.T) {
	base := solid(t, 100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	qr := solid(t, 10, 10, color.NRGBA{A: 255})
	out, err := Overlay{Image: qr, Size: 20, Margin: 5}.Apply(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.At(85, 85).R)
	assert.Equal(t, uint8(255), out.At(10, 10).R)

	_, err = Overlay{Image: qr, Size: 200}.Apply(context.Background(), base)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestWatermarkRequiresText(t *testing.T) {
	_, err := Watermark{}.Apply(context.Background(), solid(t, 50, 50, color.NRGBA{A: 255}))
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}
