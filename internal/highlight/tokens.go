package highlight

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/sahilm/fuzzy"
	"golang.org/x/net/html"

	"github.com/folio-press/folio/internal/brackets"
)

// ErrUnknownLanguage is returned when no grammar exists for a language name.
var ErrUnknownLanguage = errors.New("unknown language")

// TokenKind distinguishes literal text from wrapping elements.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenElement
)

// CodeToken is one node of a token tree. Elements nest by token type
// hierarchy: a string delimiter sits inside a string element, which sits
// inside a literal element. Adjacent tokens sharing an ancestor type share the
// element.
type CodeToken struct {
	Kind     TokenKind
	Text     string           // TokenText only
	Type     chroma.TokenType // TokenElement only
	Classes  []string         // TokenElement only
	Children []CodeToken      // TokenElement only
}

// Plaintext is the language used when a block declares none.
const Plaintext = "plaintext"

// Lexer resolves a language name to a coalescing Chroma lexer.
func Lexer(language string) (chroma.Lexer, error) {
	name := strings.TrimSpace(language)
	if name == "" {
		name = Plaintext
	}
	lexer := lexers.Get(name)
	if lexer == nil {
		if s := Suggest(name); s != "" {
			return nil, fmt.Errorf("highlight: %w %q (did you mean %q?)", ErrUnknownLanguage, name, s)
		}
		return nil, fmt.Errorf("highlight: %w %q", ErrUnknownLanguage, name)
	}
	return chroma.Coalesce(lexer), nil
}

// Suggest returns the closest known language name, or "" when nothing is
// close.
func Suggest(language string) string {
	matches := fuzzy.Find(strings.ToLower(language), lexers.Names(true))
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// Tokenize lexes code and groups the tokens into a tree.
func Tokenize(code, language string) ([]CodeToken, error) {
	lexer, err := Lexer(language)
	if err != nil {
		return nil, err
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("highlight: tokenise: %w", err)
	}
	tokens := iterator.Tokens()

	// Some lexers append a newline the source did not have.
	if !strings.HasSuffix(code, "\n") && len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		last.Value = strings.TrimSuffix(last.Value, "\n")
		if last.Value == "" {
			tokens = tokens[:len(tokens)-1]
		}
	}

	var root []CodeToken
	for _, tok := range tokens {
		if tok.Value == "" {
			continue
		}
		insert(&root, typePath(tok.Type), tok.Value)
	}
	return root, nil
}

// insert places text under the element chain described by path, reusing the
// trailing elements of siblings that already match.
func insert(siblings *[]CodeToken, path []chroma.TokenType, text string) {
	for _, tt := range path {
		n := len(*siblings)
		if n > 0 && (*siblings)[n-1].Kind == TokenElement && (*siblings)[n-1].Type == tt {
			siblings = &(*siblings)[n-1].Children
			continue
		}
		*siblings = append(*siblings, CodeToken{
			Kind:    TokenElement,
			Type:    tt,
			Classes: classes(tt),
		})
		siblings = &(*siblings)[len(*siblings)-1].Children
	}
	if n := len(*siblings); n > 0 && (*siblings)[n-1].Kind == TokenText {
		(*siblings)[n-1].Text += text
		return
	}
	*siblings = append(*siblings, CodeToken{Kind: TokenText, Text: text})
}

// typePath lists tt's ancestors from category down to tt itself. Plain text
// has no path and is emitted bare.
func typePath(tt chroma.TokenType) []chroma.TokenType {
	if tt < 0 {
		return []chroma.TokenType{tt}
	}
	if tt.Category() == chroma.Text {
		return nil
	}
	path := []chroma.TokenType{tt.Category()}
	if sub := tt.SubCategory(); sub != path[len(path)-1] {
		path = append(path, sub)
	}
	if tt != path[len(path)-1] {
		path = append(path, tt)
	}
	return path
}

// classes returns the Chroma short class followed by the kebab-cased kind
// name, e.g. "kd keyword-declaration".
func classes(tt chroma.TokenType) []string {
	var out []string
	if short := chroma.StandardTypes[tt]; short != "" {
		out = append(out, short)
	}
	return append(out, kebab(tt.String()))
}

func kebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RenderTokens serialises a token tree. All text is escaped, and braces in
// text runs are coloured by depth across the whole tree.
func RenderTokens(tokens []CodeToken) string {
	var (
		b         strings.Builder
		colorizer brackets.Colorizer
	)
	writeTokens(&b, &colorizer, tokens)
	return b.String()
}

func writeTokens(b *strings.Builder, c *brackets.Colorizer, tokens []CodeToken) {
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenText:
			b.WriteString(c.Write(html.EscapeString(tok.Text)))
		case TokenElement:
			b.WriteString(`<span class="`)
			b.WriteString(html.EscapeString(strings.Join(tok.Classes, " ")))
			b.WriteString(`">`)
			writeTokens(b, c, tok.Children)
			b.WriteString("</span>")
		}
	}
}

// Text concatenates the literal text of a token tree.
func Text(tokens []CodeToken) string {
	var b strings.Builder
	var walk func([]CodeToken)
	walk = func(ts []CodeToken) {
		for _, t := range ts {
			if t.Kind == TokenText {
				b.WriteString(t.Text)
			} else {
				walk(t.Children)
			}
		}
	}
	walk(tokens)
	return b.String()
}
