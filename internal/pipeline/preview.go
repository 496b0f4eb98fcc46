package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/transform"
)

const DefaultPreviewWindow = 300 * time.Millisecond

// Frame is one rendered preview. Err is set when the chain failed; the
// previous good frame stays available through Latest.
type Frame struct {
	Generation uint64
	Surface    *raster.Surface
	Err        error
}

// Preview re-renders a source surface whenever its stages change. Updates
// inside the debounce window collapse into one render, and a render that
// finishes after a newer Update is dropped.
type Preview struct {
	source   *raster.Surface
	debounce *Debouncer
	onRender func(Frame)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	latest Frame
	have   bool
	closed bool
}

func NewPreview(source *raster.Surface, window time.Duration, onRender func(Frame)) *Preview {
	if window <= 0 {
		window = DefaultPreviewWindow
	}
	return &Preview{
		source:   source,
		debounce: NewDebouncer(window),
		onRender: onRender,
	}
}

// Update schedules a render of stages and returns its generation.
func (p *Preview) Update(stages ...transform.Stage) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.gen
	}
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.debounce.Trigger(func() { p.render(ctx, gen, stages) })
	return gen
}

// Flush renders the pending update immediately.
func (p *Preview) Flush() bool {
	return p.debounce.Flush()
}

func (p *Preview) render(ctx context.Context, gen uint64, stages []transform.Stage) {
	out, err := transform.Chain(ctx, p.source.Clone(), stages...)

	p.mu.Lock()
	if p.closed || gen != p.gen || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	frame := Frame{Generation: gen, Surface: out, Err: err}
	if err == nil {
		p.latest = frame
		p.have = true
	}
	p.mu.Unlock()

	if p.onRender != nil {
		p.onRender(frame)
	}
}

// Latest returns the newest successfully rendered frame.
func (p *Preview) Latest() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.have
}

func (p *Preview) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *Preview) Close() {
	p.debounce.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
