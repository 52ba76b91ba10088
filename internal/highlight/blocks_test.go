package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocks_HighlightsCodeClassLanguage(t *testing.T) {
	in := `<p>intro</p><pre><code class="language-go">func main() { }</code></pre>`
	out := Blocks(in)

	assert.Contains(t, out, `<p>intro</p>`)
	assert.Contains(t, out, `class="language-go chroma"`)
	assert.Contains(t, out, `data-highlighted="true"`)
	assert.Contains(t, out, "kd keyword-declaration")
	assert.Contains(t, out, `<span class="bracket-depth-0">{</span>`)
}

func TestBlocks_PreAttributeTakesPriority(t *testing.T) {
	in := `<pre data-language="go"><code class="language-nosuchlang">var x = 1</code></pre>`
	out := Blocks(in)
	assert.Contains(t, out, "kd keyword-declaration")
}

func TestBlocks_UnknownLanguageLeftUntouched(t *testing.T) {
	in := `<pre><code class="language-nosuchlang">a { b }</code></pre>`
	assert.Equal(t, in, Blocks(in))
}

func TestBlocks_NoLanguageFallsBackToPlaintext(t *testing.T) {
	out := Blocks(`<pre><code>x &lt; {y}</code></pre>`)
	assert.Contains(t, out, `x &lt; <span class="bracket-depth-0">{</span>y`)
	assert.Contains(t, out, `class="chroma"`)
}

func TestBlocks_Idempotent(t *testing.T) {
	in := `<h2 id="a">A</h2><pre><code class="language-go">if a { b() }</code></pre><p>tail</p>`
	once := Blocks(in)
	assert.Equal(t, once, Blocks(once))
}

func TestBlocks_LeavesNonCodeAlone(t *testing.T) {
	in := `<p>no code here, just {braces}</p>`
	assert.Equal(t, in, Blocks(in))

	in = `<p>inline <code>{x}</code></p>`
	assert.Equal(t, in, Blocks(in), "inline code outside pre is not a block")
}

func TestBlocks_KeepsSurroundingStructure(t *testing.T) {
	in := `<ul><li>one</li></ul><pre><code class="language-go">x</code></pre><blockquote>q</blockquote>`
	out := Blocks(in)
	assert.True(t, strings.HasPrefix(out, `<ul><li>one</li></ul><pre>`))
	assert.True(t, strings.HasSuffix(out, `</pre><blockquote>q</blockquote>`))
}

func TestBlocks_PreservesMarkupBytesOutsideCode(t *testing.T) {
	head := `<p>a<br>b &amp; c</p><img src="x.png">`
	tail := `<p>after<br></p>`
	in := head + `<pre><code class="language-go">x := 1</code></pre>` + tail
	out := Blocks(in)

	assert.True(t, strings.HasPrefix(out, head+`<pre><code `), out)
	assert.True(t, strings.HasSuffix(out, `</code></pre>`+tail), out)
	assert.Contains(t, out, `data-highlighted="true"`)
}

func TestBlocks_SplicesOnlyChangedBlocks(t *testing.T) {
	done := `<pre><code class="language-go chroma" data-highlighted="true"><span>x</span></code></pre>`
	in := done + `<hr><pre><code class="language-go">y := 2</code></pre>`
	out := Blocks(in)

	assert.True(t, strings.HasPrefix(out, done+`<hr><pre><code `), out)
	assert.Equal(t, 2, strings.Count(out, `data-highlighted="true"`))
}
