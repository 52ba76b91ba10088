package brackets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colors(bs []Bracket) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = b.Color
	}
	return out
}

func TestDepths_Nested(t *testing.T) {
	got := Depths("{a{b{c}d}e}")
	require.Len(t, got, 6)
	// opens: 0,1,2 ; closes (inner first): 2,1,0
	assert.Equal(t, []int{0, 1, 2, 2, 1, 0}, colors(got))
	assert.True(t, got[0].Open)
	assert.False(t, got[3].Open)
	assert.Equal(t, 0, got[0].Offset)
	assert.Equal(t, 10, got[5].Offset)
}

func TestDepths_UnmatchedCloserClamps(t *testing.T) {
	got := Depths("}{")
	require.Len(t, got, 2)
	assert.Equal(t, []int{0, 0}, colors(got))

	var c Colorizer
	c.Write("}}}")
	assert.Equal(t, 0, c.Depth())
	c.Write("{")
	assert.Equal(t, 1, c.Depth())
}

func TestDepths_PaletteWraps(t *testing.T) {
	text := strings.Repeat("{", 8) + strings.Repeat("}", 8)
	got := colors(Depths(text))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 0, 1, 1, 0, 5, 4, 3, 2, 1, 0}, got)
}

func TestDepths_SiblingsShareColor(t *testing.T) {
	got := colors(Depths("{ {} {} }"))
	assert.Equal(t, []int{0, 1, 1, 1, 1, 0}, got)
}

func TestColorize_Markup(t *testing.T) {
	out := Colorize("f() {x}")
	assert.Equal(t,
		`f() <span class="bracket-depth-0">{</span>x<span class="bracket-depth-0">}</span>`,
		out)
}

func TestColorize_NoBracesUnchanged(t *testing.T) {
	in := "plain &lt;text&gt; (with) [parens]"
	assert.Equal(t, in, Colorize(in))
}

func TestColorize_StackNotSharedBetweenCalls(t *testing.T) {
	first := Colorize("{{")
	second := Colorize("{")
	assert.Contains(t, first, "bracket-depth-1")
	assert.Equal(t, `<span class="bracket-depth-0">{</span>`, second)
}

func TestColorizer_ContinuesAcrossRuns(t *testing.T) {
	var c Colorizer
	a := c.Write("if x {")
	b := c.Write(" y { ")
	d := c.Write("} }")
	assert.Contains(t, a, "bracket-depth-0")
	assert.Contains(t, b, "bracket-depth-1")
	assert.Equal(t,
		`<span class="bracket-depth-1">}</span> <span class="bracket-depth-0">}</span>`, d)
}

func TestClass(t *testing.T) {
	assert.Equal(t, "bracket-depth-0", Class(0))
	assert.Equal(t, "bracket-depth-5", Class(5))
	assert.Equal(t, "bracket-depth-1", Class(7))
}
