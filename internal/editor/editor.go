// Package editor implements keystroke handling for code blocks in the rich
// text editor: auto-closing of delimiter pairs, smart indentation on Enter
// and '{', and a Backspace guard at the start of a block.
//
// Transition is a pure function of the key, the editor state and the
// auto-match settings. It never touches a live editor; the caller applies the
// returned Mutation.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnknownKey is returned by ParseKey for keys the state machine ignores.
var ErrUnknownKey = errors.New("unknown key")

// Key is a keystroke the state machine reacts to.
type Key int

const (
	KeyParen Key = iota + 1
	KeyBracket
	KeyDoubleQuote
	KeySingleQuote
	KeyBacktick
	KeyBrace
	KeyEnter
	KeyBackspace
)

var keyNames = map[Key]string{
	KeyParen:       "(",
	KeyBracket:     "[",
	KeyDoubleQuote: `"`,
	KeySingleQuote: "'",
	KeyBacktick:    "`",
	KeyBrace:       "{",
	KeyEnter:       "Enter",
	KeyBackspace:   "Backspace",
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey maps a DOM KeyboardEvent.key value to a Key.
func ParseKey(s string) (Key, error) {
	for k, name := range keyNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("editor: %w %q", ErrUnknownKey, s)
}

// closers pairs every auto-matched opening key with its closing character.
var closers = map[Key]string{
	KeyParen:       ")",
	KeyBracket:     "]",
	KeyDoubleQuote: `"`,
	KeySingleQuote: "'",
	KeyBacktick:    "`",
}

// indentUnit is one extra indentation level.
const indentUnit = "  "

// State is the part of the editor the state machine looks at. Caret is a
// byte offset into Text, the text of the code block holding the caret. An
// offset inside a multi-byte rune is moved back to the start of that rune.
type State struct {
	InCodeBlock bool
	Text        string
	Caret       int
}

// Mutation inserts Insert at offset At and then moves the caret to Caret. The
// zero-length Mutation swallows the key without changing anything.
type Mutation struct {
	Insert string
	At     int
	Caret  int
}

// ActionKind tags an Action.
type ActionKind int

const (
	// PassThrough leaves the key to the editor's default handling.
	PassThrough ActionKind = iota
	// Handled means the key was consumed; the Mutation is applied instead.
	Handled
)

func (k ActionKind) String() string {
	if k == Handled {
		return "handled"
	}
	return "pass-through"
}

// Action is the result of a Transition.
type Action struct {
	Kind     ActionKind
	Mutation Mutation
}

// Handle wraps m in a Handled action.
func Handle(m Mutation) Action { return Action{Kind: Handled, Mutation: m} }

// Pass is the PassThrough action.
func Pass() Action { return Action{Kind: PassThrough} }

// IsHandled reports whether the key was consumed.
func (a Action) IsHandled() bool { return a.Kind == Handled }

// Transition decides what happens when key is pressed in state st.
//
//   - Outside a code block every key passes through.
//   - ( [ " ' ` insert their pair with the caret in between when enabled in s.
//   - { always inserts a braced block indented like the current line, with
//     the caret on the blank line inside.
//   - Enter inserts a newline and the current line's indentation, plus one
//     level when the line ends with ( or [.
//   - Backspace at offset 0 is swallowed so the block does not merge into
//     the node before it.
func Transition(key Key, st State, s AutoMatchSettings) Action {
	if !st.InCodeBlock {
		return Pass()
	}
	caret := runeBoundary(st.Text, st.Caret)

	switch key {
	case KeyParen, KeyBracket, KeyDoubleQuote, KeySingleQuote, KeyBacktick:
		if !s.Enabled(key) {
			return Pass()
		}
		return Handle(Mutation{
			Insert: key.String() + closers[key],
			At:     caret,
			Caret:  caret + len(key.String()),
		})

	case KeyBrace:
		indent := lineIndent(st.Text, caret)
		head := "{\n" + indent + indentUnit
		return Handle(Mutation{
			Insert: head + "\n" + indent + "}",
			At:     caret,
			Caret:  caret + len(head),
		})

	case KeyEnter:
		indent := lineIndent(st.Text, caret)
		insert := "\n" + indent
		line := strings.TrimSpace(st.Text[lineStart(st.Text, caret):caret])
		if strings.HasSuffix(line, "(") || strings.HasSuffix(line, "[") {
			insert += indentUnit
		}
		return Handle(Mutation{
			Insert: insert,
			At:     caret,
			Caret:  caret + len(insert),
		})

	case KeyBackspace:
		if caret == 0 {
			return Handle(Mutation{At: 0, Caret: 0})
		}
		return Pass()
	}
	return Pass()
}

// Apply returns st with m applied.
func Apply(st State, m Mutation) State {
	at := runeBoundary(st.Text, m.At)
	st.Text = st.Text[:at] + m.Insert + st.Text[at:]
	st.Caret = m.Caret
	return st
}

// runeBoundary clamps off into text and backs it up to the start of the rune
// it falls in.
func runeBoundary(text string, off int) int {
	off = min(max(off, 0), len(text))
	for off > 0 && off < len(text) && !utf8.RuneStart(text[off]) {
		off--
	}
	return off
}

func lineStart(text string, caret int) int {
	return strings.LastIndexByte(text[:caret], '\n') + 1
}

// lineIndent returns the leading spaces and tabs of the line holding caret.
func lineIndent(text string, caret int) string {
	line := text[lineStart(text, caret):]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
