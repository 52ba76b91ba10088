package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/folio-press/folio/internal/kvstore"
	"github.com/folio-press/folio/internal/logging"
)

// SettingsKey is the fixed storage key of the auto-match settings.
const SettingsKey = "folio.editor.autoMatch"

var edLog = logging.ForComponent(logging.CompEditor)

// AutoMatchSettings toggles auto-closing per delimiter pair. Curly braces are
// not listed: they are always handled.
type AutoMatchSettings struct {
	Parens       bool `json:"parens"`
	Brackets     bool `json:"brackets"`
	DoubleQuotes bool `json:"doubleQuotes"`
	SingleQuotes bool `json:"singleQuotes"`
	Backticks    bool `json:"backticks"`
}

// DefaultSettings enables every pair.
func DefaultSettings() AutoMatchSettings {
	return AutoMatchSettings{
		Parens:       true,
		Brackets:     true,
		DoubleQuotes: true,
		SingleQuotes: true,
		Backticks:    true,
	}
}

// Enabled reports whether auto-closing is on for key. Keys without a toggle
// report false.
func (s AutoMatchSettings) Enabled(key Key) bool {
	switch key {
	case KeyParen:
		return s.Parens
	case KeyBracket:
		return s.Brackets
	case KeyDoubleQuote:
		return s.DoubleQuotes
	case KeySingleQuote:
		return s.SingleQuotes
	case KeyBacktick:
		return s.Backticks
	default:
		return false
	}
}

// ParseSettings decodes stored settings. Fields missing from data keep their
// default value.
func ParseSettings(data []byte) (AutoMatchSettings, error) {
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("editor: parse settings: %w", err)
	}
	return s, nil
}

// LoadSettings reads the settings from store. A missing, unreadable or
// malformed value yields DefaultSettings.
func LoadSettings(ctx context.Context, store kvstore.Store) AutoMatchSettings {
	data, err := store.Get(ctx, SettingsKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			edLog.Warn("settings_read_failed", slog.String("error", err.Error()))
		}
		return DefaultSettings()
	}
	s, err := ParseSettings(data)
	if err != nil {
		edLog.Debug("settings_malformed", slog.String("error", err.Error()))
		return DefaultSettings()
	}
	return s
}

// SaveSettings writes s to store under SettingsKey.
func SaveSettings(ctx context.Context, store kvstore.Store, s AutoMatchSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("editor: marshal settings: %w", err)
	}
	if err := store.Set(ctx, SettingsKey, data); err != nil {
		return fmt.Errorf("editor: save settings: %w", err)
	}
	return nil
}
