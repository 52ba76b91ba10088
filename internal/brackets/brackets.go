// Package brackets colours nested curly braces by depth.
//
// A brace opened at depth d gets class "bracket-depth-(d mod 6)" and its
// matching closer gets the same class. Closers without an opener clamp the
// depth at zero instead of going negative.
package brackets

import (
	"strconv"
	"strings"
)

// Palette is the number of distinct depth classes.
const Palette = 6

// ClassPrefix is prepended to the depth index to form the span class.
const ClassPrefix = "bracket-depth-"

// Class returns the span class for a depth.
func Class(depth int) string {
	return ClassPrefix + strconv.Itoa(depth%Palette)
}

// Bracket records the colour assigned to one brace.
type Bracket struct {
	Offset int  // byte offset in the scanned text
	Open   bool // '{' or '}'
	Color  int  // 0..Palette-1
}

// Colorizer carries the brace stack across several text runs of the same
// code block. The zero value is ready to use; do not share one between blocks.
type Colorizer struct {
	depth int
	stack []int
}

// next returns the colour index for c and updates the stack.
func (c *Colorizer) next(open bool) int {
	if open {
		d := c.depth
		c.stack = append(c.stack, d)
		c.depth++
		return d % Palette
	}
	if c.depth > 0 {
		c.depth--
	}
	popped := 0
	if n := len(c.stack); n > 0 {
		popped = c.stack[n-1]
		c.stack = c.stack[:n-1]
	}
	return popped % Palette
}

// Write colours the braces of one text run, continuing from the state left by
// previous runs.
func (c *Colorizer) Write(text string) string {
	if !strings.ContainsAny(text, "{}") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 32)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '{' && ch != '}' {
			b.WriteByte(ch)
			continue
		}
		b.WriteString(`<span class="`)
		b.WriteString(ClassPrefix)
		b.WriteString(strconv.Itoa(c.next(ch == '{')))
		b.WriteString(`">`)
		b.WriteByte(ch)
		b.WriteString(`</span>`)
	}
	return b.String()
}

// Depth is the number of currently open braces.
func (c *Colorizer) Depth() int { return c.depth }

// Colorize colours every brace in text using a fresh stack.
func Colorize(text string) string {
	var c Colorizer
	return c.Write(text)
}

// Depths returns the colour assignment for every brace in text without
// producing markup.
func Depths(text string) []Bracket {
	var c Colorizer
	var out []Bracket
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			out = append(out, Bracket{Offset: i, Open: true, Color: c.next(true)})
		case '}':
			out = append(out, Bracket{Offset: i, Open: false, Color: c.next(false)})
		}
	}
	return out
}
