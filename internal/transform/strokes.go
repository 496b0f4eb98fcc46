package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Point is one pen sample. Pressure is 0 when the device does not report it;
// T is the time since the stroke began.
type Point struct {
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Pressure float64       `json:"pressure,omitempty"`
	T        time.Duration `json:"t"`
}

type Stroke struct {
	Points []Point `json:"points"`
}

// segmentWidth picks the pen width for the segment ending at b.
func segmentWidth(base float64, a, b Point) float64 {
	if b.Pressure > 0 {
		return base * math.Max(0.5, math.Min(1.2, 0.5+0.7*b.Pressure))
	}
	dt := (b.T - a.T).Seconds() * 1000
	if dt <= 0 {
		return base
	}
	speed := math.Hypot(b.X-a.X, b.Y-a.Y) / dt
	return base * math.Max(0.5, math.Min(1.2, 1.2-0.3*speed))
}

func mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// curve is one smoothed piece of a stroke: a quadratic from Start to End.
type curve struct {
	Start, Ctrl, End Point
	Width            float64
}

// curves smooths a stroke by joining segment midpoints with quadratics whose
// control points are the samples themselves.
func curves(st Stroke, base float64) []curve {
	p := st.Points
	switch len(p) {
	case 0, 1:
		return nil
	case 2:
		w := segmentWidth(base, p[0], p[1])
		return []curve{{Start: p[0], Ctrl: mid(p[0], p[1]), End: p[1], Width: w}}
	}
	out := make([]curve, 0, len(p)-1)
	for i := 1; i < len(p)-1; i++ {
		start := mid(p[i-1], p[i])
		if i == 1 {
			start = p[0]
		}
		end := mid(p[i], p[i+1])
		if i == len(p)-2 {
			end = p[i+1]
		}
		out = append(out, curve{Start: start, Ctrl: p[i], End: end, Width: segmentWidth(base, p[i-1], p[i])})
	}
	return out
}

// Strokes draws pen strokes onto the surface.
type Strokes struct {
	Strokes []Stroke
	Width   float64
	Color   color.Color
	Offset  image.Point
}

func (Strokes) Name() string { return "strokes" }

func (sk Strokes) Apply(ctx context.Context, s *raster.Surface) (*raster.Surface, error) {
	if sk.Width <= 0 || math.IsNaN(sk.Width) {
		return nil, invalid("stroke width %.2f", sk.Width)
	}
	ink := sk.Color
	if ink == nil {
		ink = color.Black
	}
	img := s.Image()
	scanner := rasterx.NewScannerGV(s.Width, s.Height, img, img.Bounds())
	stroker := rasterx.NewStroker(s.Width, s.Height, scanner)
	filler := rasterx.NewFiller(s.Width, s.Height, scanner)
	stroker.SetColor(ink)
	filler.SetColor(ink)
	dx, dy := float64(sk.Offset.X), float64(sk.Offset.Y)

	for _, st := range sk.Strokes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(st.Points) == 1 {
			p := st.Points[0]
			filler.Clear()
			rasterx.AddCircle(p.X-dx, p.Y-dy, segmentWidth(sk.Width, p, p)/2, filler)
			filler.Draw()
			continue
		}
		for _, c := range curves(st, sk.Width) {
			stroker.Clear()
			stroker.SetStroke(fixed.Int26_6(c.Width*64), fixed.Int26_6(4*64),
				rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round)
			stroker.Start(rasterx.ToFixedP(c.Start.X-dx, c.Start.Y-dy))
			stroker.QuadBezier(rasterx.ToFixedP(c.Ctrl.X-dx, c.Ctrl.Y-dy), rasterx.ToFixedP(c.End.X-dx, c.End.Y-dy))
			stroker.Stop(false)
			stroker.Draw()
		}
	}
	return s, nil
}

// Pad collects strokes as they are drawn. It is not safe for concurrent use.
type Pad struct {
	Width   float64
	Color   color.Color
	strokes []Stroke
	active  *Stroke
	started time.Time
	now     func() time.Time
}

func NewPad(width float64, ink color.Color) *Pad {
	return &Pad{Width: width, Color: ink, now: time.Now}
}

func (p *Pad) Begin(x, y, pressure float64) {
	p.End()
	p.started = p.now()
	p.active = &Stroke{Points: []Point{{X: x, Y: y, Pressure: pressure}}}
}

func (p *Pad) Move(x, y, pressure float64) {
	if p.active == nil {
		return
	}
	p.active.Points = append(p.active.Points, Point{X: x, Y: y, Pressure: pressure, T: p.now().Sub(p.started)})
}

func (p *Pad) End() {
	if p.active == nil {
		return
	}
	p.strokes = append(p.strokes, *p.active)
	p.active = nil
}

// Add appends a finished stroke, for strokes recorded elsewhere.
func (p *Pad) Add(st Stroke) {
	if len(st.Points) > 0 {
		p.strokes = append(p.strokes, st)
	}
}

// Undo removes the most recent stroke and reports whether one was removed.
func (p *Pad) Undo() bool {
	if p.active != nil {
		p.active = nil
		return true
	}
	if len(p.strokes) == 0 {
		return false
	}
	p.strokes = p.strokes[:len(p.strokes)-1]
	return true
}

func (p *Pad) Clear() {
	p.strokes = nil
	p.active = nil
}

func (p *Pad) IsEmpty() bool {
	return len(p.strokes) == 0 && p.active == nil
}

func (p *Pad) Strokes() []Stroke {
	out := make([]Stroke, len(p.strokes))
	copy(out, p.strokes)
	return out
}

// Bounds is the ink bounding box including pen width, or false when empty.
func (p *Pad) Bounds() (image.Rectangle, bool) {
	if len(p.strokes) == 0 {
		return image.Rectangle{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, st := range p.strokes {
		for _, pt := range st.Points {
			minX, minY = math.Min(minX, pt.X), math.Min(minY, pt.Y)
			maxX, maxY = math.Max(maxX, pt.X), math.Max(maxY, pt.Y)
		}
	}
	pad := p.Width*1.2/2 + 1
	return image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)), int(math.Ceil(maxY+pad)),
	), true
}

// Render draws the pad onto a width x height canvas. A nil background leaves
// it transparent. With trim set the canvas is cropped to Bounds.
func (p *Pad) Render(ctx context.Context, width, height int, bg color.Color, trim bool) (*raster.Surface, error) {
	if p.IsEmpty() {
		return nil, invalid("signature is empty")
	}
	p.End()
	offset := image.Point{}
	if trim {
		b, _ := p.Bounds()
		offset = b.Min
		width, height = b.Dx(), b.Dy()
	}
	canvas, err := raster.New(width, height)
	if err != nil {
		return nil, err
	}
	if bg != nil {
		canvas.Fill(bg)
	}
	return Strokes{Strokes: p.strokes, Width: p.Width, Color: p.Color, Offset: offset}.Apply(ctx, canvas)
}

// SVG renders the strokes as path data.
func (p *Pad) SVG(width, height int, bg color.Color, trim bool) (string, error) {
	if p.IsEmpty() {
		return "", invalid("signature is empty")
	}
	p.End()
	var dx, dy float64
	if trim {
		b, _ := p.Bounds()
		dx, dy = float64(b.Min.X), float64(b.Min.Y)
		width, height = b.Dx(), b.Dy()
	}
	ink := p.Color
	if ink == nil {
		ink = color.Black
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	if bg != nil {
		fmt.Fprintf(&sb, `<rect width="100%%" height="100%%" fill="%s"/>`, hexColor(bg))
	}
	fmt.Fprintf(&sb, `<g fill="none" stroke="%s" stroke-linecap="round" stroke-linejoin="round">`, hexColor(ink))
	for _, st := range p.strokes {
		if len(st.Points) == 1 {
			pt := st.Points[0]
			fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" stroke="none"/>`,
				pt.X-dx, pt.Y-dy, segmentWidth(p.Width, pt, pt)/2, hexColor(ink))
			continue
		}
		for _, c := range curves(st, p.Width) {
			fmt.Fprintf(&sb, `<path stroke-width="%.2f" d="M%.2f %.2f Q%.2f %.2f %.2f %.2f"/>`,
				c.Width, c.Start.X-dx, c.Start.Y-dy, c.Ctrl.X-dx, c.Ctrl.Y-dy, c.End.X-dx, c.End.Y-dy)
		}
	}
	sb.WriteString(`</g></svg>`)
	return sb.String(), nil
}

func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
