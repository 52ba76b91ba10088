package editor

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inBlock(text string, caret int) State {
	return State{InCodeBlock: true, Text: text, Caret: caret}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"(", KeyParen},
		{"[", KeyBracket},
		{`"`, KeyDoubleQuote},
		{"'", KeySingleQuote},
		{"`", KeyBacktick},
		{"{", KeyBrace},
		{"Enter", KeyEnter},
		{"Backspace", KeyBackspace},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
			assert.Equal(t, tt.in, k.String())
		})
	}

	_, err := ParseKey("a")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestTransition_OutsideCodeBlockPassesThrough(t *testing.T) {
	st := State{InCodeBlock: false, Text: "", Caret: 0}
	for k := range keyNames {
		assert.False(t, Transition(k, st, DefaultSettings()).IsHandled(), k.String())
	}
}

func TestTransition_AutoPairs(t *testing.T) {
	tests := []struct {
		key    Key
		insert string
	}{
		{KeyParen, "()"},
		{KeyBracket, "[]"},
		{KeyDoubleQuote, `""`},
		{KeySingleQuote, "''"},
		{KeyBacktick, "``"},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			a := Transition(tt.key, inBlock("ab", 1), DefaultSettings())
			require.True(t, a.IsHandled())
			assert.Equal(t, Mutation{Insert: tt.insert, At: 1, Caret: 2}, a.Mutation)

			st := Apply(inBlock("ab", 1), a.Mutation)
			assert.Equal(t, "a"+tt.insert+"b", st.Text)
			assert.Equal(t, 2, st.Caret)
		})
	}
}

func TestTransition_DisabledToggleFallsThrough(t *testing.T) {
	s := DefaultSettings()
	s.Parens = false
	s.Backticks = false

	assert.Equal(t, Pass(), Transition(KeyParen, inBlock("", 0), s))
	assert.Equal(t, Pass(), Transition(KeyBacktick, inBlock("", 0), s))
	assert.True(t, Transition(KeyBracket, inBlock("", 0), s).IsHandled())
}

func TestTransition_BraceIgnoresToggles(t *testing.T) {
	var allOff AutoMatchSettings
	a := Transition(KeyBrace, inBlock("func f() ", 9), allOff)
	require.True(t, a.IsHandled())
	assert.Equal(t, "{\n  \n}", a.Mutation.Insert)

	st := Apply(inBlock("func f() ", 9), a.Mutation)
	assert.Equal(t, "func f() {\n  \n}", st.Text)
	assert.Equal(t, len("func f() {\n  "), st.Caret)
}

func TestTransition_BraceKeepsIndent(t *testing.T) {
	text := "func f() {\n    if x "
	a := Transition(KeyBrace, inBlock(text, len(text)), DefaultSettings())
	require.True(t, a.IsHandled())
	assert.Equal(t, "{\n      \n    }", a.Mutation.Insert)

	st := Apply(inBlock(text, len(text)), a.Mutation)
	assert.Equal(t, text+"{\n      ", st.Text[:st.Caret])
}

func TestTransition_EnterIndentsAfterOpenParen(t *testing.T) {
	text := "  foo("
	a := Transition(KeyEnter, inBlock(text, len(text)), DefaultSettings())
	require.True(t, a.IsHandled())
	assert.Equal(t, "\n    ", a.Mutation.Insert)

	st := Apply(inBlock(text, len(text)), a.Mutation)
	assert.Equal(t, "  foo(\n    ", st.Text)
	assert.Equal(t, len(st.Text), st.Caret)
}

func TestTransition_Enter(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		caret  int
		insert string
	}{
		{"plain line keeps indent", "\tx := 1", 7, "\n\t"},
		{"open bracket adds level", "xs := [", 7, "\n  "},
		{"trailing space after paren", "  call( ", 8, "\n    "},
		{"brace does not add level", "  if x {", 8, "\n  "},
		{"no indent", "abc", 3, "\n"},
		{"second line", "a(\n  b", 6, "\n  "},
		{"caret mid line uses text before caret", "  f(x)", 4, "\n    "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Transition(KeyEnter, inBlock(tt.text, tt.caret), DefaultSettings())
			require.True(t, a.IsHandled())
			assert.Equal(t, tt.insert, a.Mutation.Insert)
			assert.Equal(t, tt.caret, a.Mutation.At)
			assert.Equal(t, tt.caret+len(tt.insert), a.Mutation.Caret)
		})
	}
}

func TestTransition_BackspaceGuard(t *testing.T) {
	a := Transition(KeyBackspace, inBlock("code", 0), DefaultSettings())
	require.True(t, a.IsHandled())
	assert.Equal(t, Mutation{}, a.Mutation)
	assert.Equal(t, inBlock("code", 0), Apply(inBlock("code", 0), a.Mutation))

	assert.False(t, Transition(KeyBackspace, inBlock("code", 2), DefaultSettings()).IsHandled())
	assert.True(t, Transition(KeyBackspace, inBlock("", 0), DefaultSettings()).IsHandled())
}

func TestTransition_CaretOutOfRangeIsClamped(t *testing.T) {
	a := Transition(KeyParen, inBlock("ab", 99), DefaultSettings())
	assert.Equal(t, 2, a.Mutation.At)

	a = Transition(KeyBackspace, inBlock("ab", -5), DefaultSettings())
	assert.True(t, a.IsHandled())
}

func TestTransition_CaretInsideRuneSnapsToRuneStart(t *testing.T) {
	a := Transition(KeyEnter, inBlock("éé{", 1), DefaultSettings())
	require.True(t, a.IsHandled())
	assert.Equal(t, 0, a.Mutation.At)

	st := Apply(inBlock("éé{", 1), a.Mutation)
	assert.True(t, utf8.ValidString(st.Text))
	assert.Equal(t, "\néé{", st.Text)

	st = Apply(inBlock("aé", 0), Mutation{Insert: "(", At: 2, Caret: 2})
	assert.Equal(t, "a(é", st.Text)
}

func TestActionKind_String(t *testing.T) {
	assert.Equal(t, "handled", Handled.String())
	assert.Equal(t, "pass-through", PassThrough.String())
}
