// Package content defines the author-supplied content blob and its declared
// format.
package content

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the declared encoding of a content blob. The set is closed:
// values outside the four constants below are rejected by ParseFormat.
type Format string

const (
	Plaintext  Format = "plaintext"
	Markdown   Format = "markdown"
	HTML       Format = "html"
	HTMLEditor Format = "html_editor"
)

// ErrUnknownFormat is returned by ParseFormat for tags outside the closed set.
var ErrUnknownFormat = errors.New("unknown content format")

// Formats lists every supported format in declaration order.
func Formats() []Format {
	return []Format{Plaintext, Markdown, HTML, HTMLEditor}
}

// ParseFormat converts a wire tag into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Plaintext, Markdown, HTML, HTMLEditor:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// IsHTML reports whether the format is sanitized without any parsing step.
// html_editor renders exactly like html; it only records that the source came
// from the rich editor.
func (f Format) IsHTML() bool {
	return f == HTML || f == HTMLEditor
}

func (f Format) String() string { return string(f) }

// UnmarshalText lets Format be decoded straight from JSON and TOML.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Content is a text blob owned by a post, project or newsletter draft. A nil
// Body stands for an absent value.
type Content struct {
	Body   *string
	Format Format
}

// New returns Content with a non-nil body.
func New(body string, f Format) Content {
	return Content{Body: &body, Format: f}
}

// IsEmpty reports whether there is nothing to render.
func (c Content) IsEmpty() bool {
	return c.Body == nil || *c.Body == ""
}

// Text returns the body, or "" when absent.
func (c Content) Text() string {
	if c.Body == nil {
		return ""
	}
	return *c.Body
}
