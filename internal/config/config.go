// Package config loads folio's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/folio-press/folio/internal/logging"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "FOLIO_CONFIG"

var cfgLog = logging.ForComponent(logging.CompConfig)

// Config is the full configuration file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Highlight HighlightConfig `toml:"highlight"`
	Settings  SettingsConfig  `toml:"settings"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
	// Token, when set, is required as a bearer token on API and WebSocket
	// requests.
	Token string `toml:"token"`
	// RateLimit is the sustained render requests per second per client;
	// zero disables limiting.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type HighlightConfig struct {
	Style     string `toml:"style"`
	CacheSize int    `toml:"cache_size"`
}

type SettingsConfig struct {
	Backend string `toml:"backend"` // file, sqlite or memory
	Path    string `toml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:    "127.0.0.1:8430",
			RateLimit: 20,
			Burst:     40,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Highlight: HighlightConfig{
			Style:     "monokai",
			CacheSize: 256,
		},
		Settings: SettingsConfig{
			Backend: "file",
			Path:    filepath.Join(dataDir(), "settings"),
		},
	}
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "folio")
	}
	return ".folio"
}

// configPathFunc is overridable in tests.
var configPathFunc = defaultConfigPath

func defaultConfigPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "folio", "config.toml"), nil
}

// DefaultPath returns $FOLIO_CONFIG or <user config dir>/folio/config.toml.
func DefaultPath() (string, error) {
	return configPathFunc()
}

// Load reads the config from DefaultPath.
func Load() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config at path on top of Default. A missing file is
// not an error. Unknown keys are logged and ignored.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		cfgLog.Warn("config_unknown_keys",
			slog.String("path", path),
			slog.String("keys", strings.Join(keys, ",")))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	switch c.Settings.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("config: settings.backend must be file, sqlite or memory, got %q", c.Settings.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("config: server.rate_limit and server.burst must be >= 0")
	}
	if c.Highlight.CacheSize < 0 {
		return fmt.Errorf("config: highlight.cache_size must be >= 0")
	}
	return nil
}

// LogOptions converts the [log] section for logging.Setup.
func (c Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}
