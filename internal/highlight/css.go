package highlight

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/folio-press/folio/internal/brackets"
)

// DefaultStyle is the Chroma style whose class rules CSS emits.
const DefaultStyle = "monokai"

var (
	// formatter is used only for stylesheet generation; token markup is
	// produced by RenderTokens.
	formatter = chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(4))

	styleMu   sync.RWMutex
	styleName = DefaultStyle

	minifier = minify.New()
)

func init() {
	minifier.AddFunc("text/css", css.Minify)
}

// SetStyle selects the Chroma style used by CSS. Unknown names are rejected.
func SetStyle(name string) error {
	if _, ok := styles.Registry[strings.ToLower(name)]; !ok {
		return fmt.Errorf("highlight: unknown style %q", name)
	}
	styleMu.Lock()
	styleName = strings.ToLower(name)
	styleMu.Unlock()
	return nil
}

// CSS returns the class rules of the configured Chroma style.
func CSS() string {
	styleMu.RLock()
	style := styles.Get(styleName)
	styleMu.RUnlock()

	var buf bytes.Buffer
	_ = formatter.WriteCSS(&buf, style)
	return buf.String()
}

type themeVar struct {
	name, light, dark string
}

var themeVars = []themeVar{
	{"bg", "#fafafa", "#282c34"},
	{"fg", "#383a42", "#abb2bf"},
	{"keyword", "#a626a4", "#c678dd"},
	{"string", "#50a14f", "#98c379"},
	{"number", "#986801", "#d19a66"},
	{"comment", "#a0a1a7", "#5c6370"},
	{"function", "#4078f2", "#61afef"},
	{"type", "#c18401", "#e5c07b"},
	{"operator", "#383a42", "#abb2bf"},
	{"punctuation", "#383a42", "#abb2bf"},
	{"builtin", "#e45649", "#e06c75"},
	{"variable", "#e45649", "#e06c75"},
	{"added", "#50a14f", "#98c379"},
	{"deleted", "#e45649", "#e06c75"},
}

// bracketColors holds one light and one dark colour per depth class.
var bracketColors = [brackets.Palette][2]string{
	{"#0431fa", "#ffd700"},
	{"#319331", "#da70d6"},
	{"#7b3814", "#179fff"},
	{"#b5200d", "#f97583"},
	{"#7c3aed", "#56d364"},
	{"#0e7490", "#ffab70"},
}

// classVars maps Chroma short classes to the variable that colours them.
var classVars = []struct {
	classes []string
	variable string
	extra    string
}{
	{[]string{"k", "kc", "kd", "kn", "kp", "kr", "kt"}, "keyword", ""},
	{[]string{"s", "sa", "sb", "sc", "dl", "sd", "s2", "se", "sh", "si", "sx", "sr", "s1", "ss"}, "string", ""},
	{[]string{"m", "mb", "mf", "mh", "mi", "il", "mo"}, "number", ""},
	{[]string{"c", "ch", "cm", "c1", "cs", "cp", "cpf"}, "comment", "font-style: italic;"},
	{[]string{"nf", "fm"}, "function", ""},
	{[]string{"nc", "no", "nd", "ni", "ne", "nt"}, "type", ""},
	{[]string{"o", "ow"}, "operator", ""},
	{[]string{"p"}, "punctuation", ""},
	{[]string{"nb", "bp"}, "builtin", ""},
	{[]string{"nv", "vc", "vg", "vi"}, "variable", ""},
	{[]string{"gi"}, "added", ""},
	{[]string{"gd"}, "deleted", ""},
}

// CSSVariables returns custom properties for light and dark themes
// ([data-theme="dark"]), rules mapping Chroma classes onto them, and the
// brace depth palette.
func CSSVariables() string {
	var b strings.Builder

	writeVars := func(selector string, dark bool) {
		fmt.Fprintf(&b, "%s {\n", selector)
		for _, v := range themeVars {
			val := v.light
			if dark {
				val = v.dark
			}
			fmt.Fprintf(&b, "  --hl-%s: %s;\n", v.name, val)
		}
		for i, c := range bracketColors {
			val := c[0]
			if dark {
				val = c[1]
			}
			fmt.Fprintf(&b, "  --hl-bracket-%d: %s;\n", i, val)
		}
		b.WriteString("}\n\n")
	}
	writeVars(":root", false)
	writeVars(`[data-theme="dark"]`, true)

	b.WriteString(".chroma { background-color: var(--hl-bg); color: var(--hl-fg); }\n")
	for _, cv := range classVars {
		sels := make([]string, len(cv.classes))
		for i, c := range cv.classes {
			sels[i] = ".chroma ." + c
		}
		fmt.Fprintf(&b, "%s { color: var(--hl-%s); %s}\n", strings.Join(sels, ",\n"), cv.variable, cv.extra)
	}
	for i := range brackets.Palette {
		fmt.Fprintf(&b, ".%s { color: var(--hl-bracket-%d); }\n", brackets.Class(i), i)
	}
	return b.String()
}

// Stylesheet is the complete stylesheet for highlighted pages.
func Stylesheet() string {
	return CSS() + "\n" + CSSVariables()
}

// MinifiedCSS is Stylesheet with whitespace and comments stripped.
func MinifiedCSS() (string, error) {
	out, err := minifier.String("text/css", Stylesheet())
	if err != nil {
		return "", fmt.Errorf("highlight: minify css: %w", err)
	}
	return out, nil
}
