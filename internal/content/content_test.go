package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"plaintext", Plaintext, false},
		{"markdown", Markdown, false},
		{"html", HTML, false},
		{"html_editor", HTMLEditor, false},
		{" Markdown ", Markdown, false},
		{"rst", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_IsHTML(t *testing.T) {
	assert.True(t, HTML.IsHTML())
	assert.True(t, HTMLEditor.IsHTML())
	assert.False(t, Markdown.IsHTML())
	assert.False(t, Plaintext.IsHTML())
}

func TestFormat_UnmarshalJSON(t *testing.T) {
	var req struct {
		Format Format `json:"format"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"format":"html_editor"}`), &req))
	assert.Equal(t, HTMLEditor, req.Format)

	err := json.Unmarshal([]byte(`{"format":"latex"}`), &req)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestContent_IsEmpty(t *testing.T) {
	assert.True(t, Content{Format: Markdown}.IsEmpty())
	assert.True(t, New("", Markdown).IsEmpty())
	assert.False(t, New("x", Markdown).IsEmpty())
	assert.Equal(t, "", Content{}.Text())
	assert.Equal(t, "x", New("x", HTML).Text())
}
