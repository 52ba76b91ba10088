// Package markdown converts Markdown to HTML with two renderer overrides:
// raw HTML found in the source is written as escaped text, and headings get
// an id derived from their text.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md is built once and never mutated afterwards, so Convert is safe to call
// from any goroutine.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		&overrides{},
	),
)

// Convert renders Markdown source to HTML. A panic inside the parser is
// returned as an error so callers can degrade instead of crashing.
func Convert(source string) (string, error) {
	return convert(md, source)
}

func convert(m goldmark.Markdown, source string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markdown: convert panicked: %v", r)
		}
	}()

	var buf bytes.Buffer
	if err := m.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return buf.String(), nil
}
