package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/eventbus"
)

// Rendered is the payload of an eventbus.EventContentRendered event.
type Rendered struct {
	DocumentID string         `json:"documentId"`
	Generation uint64         `json:"generation"`
	Format     content.Format `json:"format"`
	HTML       Markup         `json:"html"`
}

// Display holds the markup currently shown for one document. Every Update
// starts a render in the background; a result is committed only if no newer
// Update was issued in the meantime, so a slow stale render can never replace
// a fresher one.
type Display struct {
	id       string
	renderer *Renderer
	bus      *eventbus.EventBus

	mu        sync.Mutex
	latest    uint64 // generation of the newest Update
	committed uint64 // generation of current
	settled   uint64 // newest generation that was committed or dropped
	current   Markup
	changed   chan struct{} // closed and replaced whenever settled advances
}

// NewDisplay creates a Display for document id. bus may be nil.
func NewDisplay(id string, r *Renderer, bus *eventbus.EventBus) *Display {
	return &Display{
		id:       id,
		renderer: r,
		bus:      bus,
		current:  NoContentMarkup,
		changed:  make(chan struct{}),
	}
}

// Update requests a render of body as format f and returns its generation.
// The render runs on its own goroutine. If ctx is done before the render
// finishes, the result is dropped.
func (d *Display) Update(ctx context.Context, body *string, f content.Format) uint64 {
	d.mu.Lock()
	d.latest++
	gen := d.latest
	d.mu.Unlock()

	go func() {
		m := d.renderer.RenderPage(body, f)
		if ctx.Err() != nil {
			d.renderer.log.Debug("render_cancelled",
				slog.String("document", d.id),
				slog.Uint64("generation", gen))
			d.mu.Lock()
			d.settle(gen)
			d.mu.Unlock()
			return
		}
		d.commit(gen, f, m)
	}()
	return gen
}

// commit stores m if gen is still the newest generation. It reports whether
// m was stored.
func (d *Display) commit(gen uint64, f content.Format, m Markup) bool {
	d.mu.Lock()
	if gen != d.latest || gen <= d.committed {
		d.mu.Unlock()
		d.renderer.log.Debug("render_superseded",
			slog.String("document", d.id),
			slog.Uint64("generation", gen))
		return false
	}
	d.committed = gen
	d.current = m
	d.settle(gen)
	d.mu.Unlock()

	if d.bus != nil {
		d.bus.Emit(eventbus.Event{
			Type:       eventbus.EventContentRendered,
			DocumentID: d.id,
			Data:       Rendered{DocumentID: d.id, Generation: gen, Format: f, HTML: m},
		})
	}
	return true
}

// settle records that generation gen will not be rendered again and wakes
// waiters. d.mu must be held.
func (d *Display) settle(gen uint64) {
	if gen <= d.settled {
		return
	}
	d.settled = gen
	close(d.changed)
	d.changed = make(chan struct{})
}

// Current returns the committed markup and its generation. Before the first
// commit it is NoContentMarkup at generation zero.
func (d *Display) Current() (Markup, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, d.committed
}

// Wait blocks until the newest requested generation has settled or ctx is
// done, and returns the committed markup. If the newest update was cancelled
// that is the markup of the last successful one.
func (d *Display) Wait(ctx context.Context) (Markup, error) {
	for {
		d.mu.Lock()
		if d.settled == d.latest {
			m := d.current
			d.mu.Unlock()
			return m, nil
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
