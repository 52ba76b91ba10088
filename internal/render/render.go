// Package render turns stored content into safe display markup.
//
// Every path ends in the sanitizer: Markdown is converted with raw HTML
// escaped and then sanitized, HTML is sanitized as is, and plaintext is
// escaped and structured before the same final pass. Empty content and
// Markdown failures produce fixed sentinel fragments instead of errors.
package render

import (
	"fmt"
	"log/slog"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/highlight"
	"github.com/folio-press/folio/internal/logging"
	"github.com/folio-press/folio/internal/markdown"
	"github.com/folio-press/folio/internal/sanitize"
)

// Markup is sanitized HTML ready to be injected into a page.
type Markup string

// Sentinel fragments. Both survive sanitization unchanged.
const (
	NoContentMarkup   Markup = `<p class="content-empty">No content available.</p>`
	RenderErrorMarkup Markup = `<p class="content-error">Error rendering content.</p>`
)

// Converter turns Markdown into HTML.
type Converter func(source string) (string, error)

// Renderer dispatches content to the right conversion path. The zero value is
// not usable; construct one with New. A Renderer is safe for concurrent use.
type Renderer struct {
	convert Converter
	log     *slog.Logger
	observe func(content.Format, Outcome)
}

// Outcome classifies a finished render for metrics.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "error"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithConverter replaces the Markdown converter.
func WithConverter(c Converter) Option {
	return func(r *Renderer) { r.convert = c }
}

// WithLogger sets the logger used for render failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithObserver registers a callback invoked after every Render.
func WithObserver(fn func(content.Format, Outcome)) Option {
	return func(r *Renderer) { r.observe = fn }
}

// New returns a Renderer using the package markdown converter.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		convert: markdown.Convert,
		log:     logging.ForComponent(logging.CompRender),
		observe: func(content.Format, Outcome) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts body, declared as format f, into sanitized markup. A nil
// or empty body yields NoContentMarkup. A Markdown conversion failure is
// logged and yields RenderErrorMarkup, as does a converter that panics.
// Render itself never fails.
func (r *Renderer) Render(body *string, f content.Format) Markup {
	if body == nil || *body == "" {
		r.observe(f, OutcomeEmpty)
		return NoContentMarkup
	}

	var out string
	switch f {
	case content.Markdown:
		converted, err := r.convertSafely(*body)
		if err != nil {
			r.log.Error("render_markdown_failed",
				slog.Int("bytes", len(*body)),
				slog.String("error", err.Error()))
			r.observe(f, OutcomeFailure)
			return RenderErrorMarkup
		}
		out = converted
	case content.HTML, content.HTMLEditor:
		out = *body
	case content.Plaintext:
		out = Plaintext(*body)
	default:
		r.log.Error("render_unknown_format", slog.String("format", string(f)))
		r.observe(f, OutcomeFailure)
		return RenderErrorMarkup
	}

	r.observe(f, OutcomeOK)
	return Markup(sanitize.Sanitize(out))
}

func (r *Renderer) convertSafely(src string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render: converter panicked: %v", p)
		}
	}()
	return r.convert(src)
}

// RenderContent is Render for a content.Content value.
func (r *Renderer) RenderContent(c content.Content) Markup {
	return r.Render(c.Body, c.Format)
}

// RenderPage renders and then runs the mount pass, producing what display
// screens show.
func (r *Renderer) RenderPage(body *string, f content.Format) Markup {
	return Mount(r.Render(body, f))
}

// Mount runs the post-render pass over already rendered markup: every
// <pre><code> block is syntax highlighted. It is idempotent and copies the
// markup outside the highlighted <code> elements byte for byte.
func Mount(m Markup) Markup {
	return Markup(highlight.Blocks(string(m)))
}
