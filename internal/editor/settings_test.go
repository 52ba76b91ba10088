package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-press/folio/internal/kvstore"
)

func newStore(t *testing.T) kvstore.Store {
	t.Helper()
	s, err := kvstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLoadSettings_MissingUsesDefaults(t *testing.T) {
	assert.Equal(t, DefaultSettings(), LoadSettings(context.Background(), newStore(t)))
}

func TestLoadSettings_MalformedUsesDefaults(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{`not json`, `[1,2]`, `{"parens":"yes"}`, ``} {
		t.Run(raw, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Set(ctx, SettingsKey, []byte(raw)))
			assert.Equal(t, DefaultSettings(), LoadSettings(ctx, s))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	want := AutoMatchSettings{Parens: false, Brackets: true, DoubleQuotes: false, SingleQuotes: true, Backticks: false}
	require.NoError(t, SaveSettings(ctx, s, want))
	assert.Equal(t, want, LoadSettings(ctx, s))

	raw, err := s.Get(ctx, SettingsKey)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"parens":false,"brackets":true,"doubleQuotes":false,"singleQuotes":true,"backticks":false}`,
		string(raw))
}

func TestParseSettings_PartialKeepsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte(`{"singleQuotes":false}`))
	require.NoError(t, err)
	want := DefaultSettings()
	want.SingleQuotes = false
	assert.Equal(t, want, s)
}

func TestEnabled(t *testing.T) {
	s := AutoMatchSettings{Brackets: true}
	assert.True(t, s.Enabled(KeyBracket))
	assert.False(t, s.Enabled(KeyParen))
	assert.False(t, DefaultSettings().Enabled(KeyBrace))
	assert.False(t, DefaultSettings().Enabled(KeyEnter))
}
