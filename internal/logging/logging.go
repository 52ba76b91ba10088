// Package logging configures the process-wide slog logger and hands out
// per-component child loggers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names attached to every record as the "component" attribute.
const (
	CompRender    = "render"
	CompHighlight = "highlight"
	CompEditor    = "editor"
	CompWeb       = "web"
	CompStore     = "store"
	CompConfig    = "config"
)

// Options controls how Setup builds the root handler.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// File enables rotating file output in addition to Output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Output     io.Writer
}

var (
	mu    sync.Mutex
	level = new(slog.LevelVar)
	rot   *lumberjack.Logger

	// base is the handler built by the last Setup. Loggers handed out by
	// ForComponent resolve it per record, so package-level loggers created
	// before Setup still follow it.
	base atomic.Pointer[slog.Handler]
	root = slog.New(&switchHandler{})
)

func init() {
	var h slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	base.Store(&h)
}

// switchHandler forwards to the current base handler, replaying the attrs and
// groups it was derived with.
type switchHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func (h *switchHandler) resolve() slog.Handler {
	out := *base.Load()
	for _, op := range h.ops {
		out = op(out)
	}
	return out
}

func (h *switchHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= level.Level()
}

func (h *switchHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &switchHandler{ops: append(slices.Clip(h.ops), func(next slog.Handler) slog.Handler {
		return next.WithAttrs(attrs)
	})}
}

func (h *switchHandler) WithGroup(name string) slog.Handler {
	return &switchHandler{ops: append(slices.Clip(h.ops), func(next slog.Handler) slog.Handler {
		return next.WithGroup(name)
	})}
}

// Setup installs a new root logger. It may be called again (for example after
// a config reload); the previous rotating file, if any, is closed.
func Setup(opts Options) {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	mu.Lock()
	defer mu.Unlock()

	if rot != nil {
		_ = rot.Close()
		rot = nil
	}
	if opts.File != "" {
		rot = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		w = io.MultiWriter(w, rot)
	}

	level.Set(ParseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	default:
		handler = slog.NewTextHandler(w, hopts)
	}

	base.Store(&handler)
	slog.SetDefault(root)
}

// SetLevel changes the level of the installed root logger in place.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForComponent returns a logger tagged with the given component name.
func ForComponent(component string) *slog.Logger {
	return root.With(slog.String("component", component))
}

// Close flushes and closes the rotating file output, if configured.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rot == nil {
		return nil
	}
	err := rot.Close()
	rot = nil
	return err
}
