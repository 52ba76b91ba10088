package highlight

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/folio-press/folio/internal/logging"
)

var hlLog = logging.ForComponent(logging.CompHighlight)

// Attribute names read and written by the block pass.
const (
	LanguageAttr    = "data-language"
	HighlightedAttr = "data-highlighted"
	languagePrefix  = "language-"
	chromaClass     = "chroma"
)

var codeBlockSelector = cascadia.MustCompile("pre > code")

// DetectLanguage picks a block's language from, in order, the language
// attribute on the enclosing <pre>, a language-<name> class on the <code>
// element, and finally plaintext.
func DetectLanguage(preLanguageAttr, codeClass string) string {
	if lang := strings.TrimSpace(preLanguageAttr); lang != "" {
		return lang
	}
	for _, class := range strings.Fields(codeClass) {
		if lang, ok := strings.CutPrefix(class, languagePrefix); ok && lang != "" {
			return lang
		}
	}
	return Plaintext
}

// Blocks highlights every <pre><code> block in markup. Blocks whose language
// is unknown are left untouched and a warning is logged. Blocks already
// carrying data-highlighted="true" are skipped, so running Blocks on its own
// output returns it unchanged. Only the highlighted <code> elements are
// rewritten; the bytes around them are copied from the input, and when no
// block changes the input is returned as is.
func Blocks(markup string) string {
	if !strings.Contains(markup, "<code") {
		return markup
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		hlLog.Warn("highlight_parse_failed", slog.String("error", err.Error()))
		return markup
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	matches := codeBlockSelector.MatchAll(root)
	replaced := make([]*html.Node, len(matches))
	changed := false
	for i, code := range matches {
		if attr(code, HighlightedAttr) == "true" {
			continue
		}
		if highlightBlock(code) {
			replaced[i] = code
			changed = true
		}
	}
	if !changed {
		return markup
	}

	if out, ok := splice(markup, replaced); ok {
		return out
	}
	hlLog.Debug("highlight_splice_fallback", slog.Int("blocks", len(matches)))

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			hlLog.Warn("highlight_render_failed", slog.String("error", err.Error()))
			return markup
		}
	}
	return buf.String()
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// splice copies markup token by token and writes the rendered form of
// replaced[i] in place of the i-th <code> element directly inside a <pre>.
// Nil entries are copied unchanged. It reports false when the tokenizer and
// the parser disagree on the blocks, and the caller must render the tree.
func splice(markup string, replaced []*html.Node) (string, bool) {
	var (
		buf   bytes.Buffer
		stack []string
		index int
	)
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return "", false
			}
			return buf.String(), index == len(replaced)
		}
		raw := append([]byte(nil), z.Raw()...)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "code" && len(stack) > 0 && stack[len(stack)-1] == "pre" {
				if index >= len(replaced) {
					return "", false
				}
				n := replaced[index]
				index++
				if n != nil {
					if tt == html.SelfClosingTagToken {
						return "", false
					}
					if err := html.Render(&buf, n); err != nil {
						return "", false
					}
					if !skipCode(z, &buf, &stack) {
						return "", false
					}
					continue
				}
			}
			if !voidElements[tag] {
				stack = append(stack, tag)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			stack = popTo(stack, string(name))
		}
		buf.Write(raw)
	}
}

// skipCode consumes the tokens of a replaced <code> element up to its end
// tag. A </pre> closing the block first is copied and popped instead.
func skipCode(z *html.Tokenizer, buf *bytes.Buffer, stack *[]string) bool {
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "code" {
				depth++
			}
		case html.EndTagToken:
			raw := append([]byte(nil), z.Raw()...)
			name, _ := z.TagName()
			switch {
			case string(name) == "code" && depth > 0:
				depth--
			case string(name) == "code":
				return true
			case string(name) == "pre" && depth == 0:
				buf.Write(raw)
				*stack = popTo(*stack, "pre")
				return true
			}
		}
	}
}

func popTo(stack []string, tag string) []string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return stack[:i]
		}
	}
	return stack
}

// highlightBlock replaces the children of a <code> node with highlighted
// spans. It reports whether the node was modified.
func highlightBlock(code *html.Node) bool {
	lang := DetectLanguage(attr(code.Parent, LanguageAttr), attr(code, "class"))
	source := textContent(code)

	out, err := Code(source, lang)
	if err != nil {
		hlLog.Warn("highlight_unknown_language",
			slog.String("language", lang),
			slog.String("error", err.Error()))
		return false
	}

	spans, err := html.ParseFragment(strings.NewReader(out), code)
	if err != nil {
		hlLog.Warn("highlight_parse_failed", slog.String("error", err.Error()))
		return false
	}
	for code.FirstChild != nil {
		code.RemoveChild(code.FirstChild)
	}
	for _, s := range spans {
		code.AppendChild(s)
	}

	class := attr(code, "class")
	if !hasClass(class, chromaClass) {
		class = strings.TrimSpace(class + " " + chromaClass)
	}
	setAttr(code, "class", class)
	setAttr(code, HighlightedAttr, "true")
	return true
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(classes, class string) bool {
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
