package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watch calls fn with the freshly loaded config every time the file at path
// is written, created or renamed into place, until ctx is done. The parent
// directory is watched so atomic-rename saves are seen. Reload errors are
// logged and the previous config stays in effect.
func Watch(ctx context.Context, path string, fn func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(path)
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(reloadDelay)
				fire = timer.C
			case <-fire:
				fire = nil
				cfg, err := LoadFromPath(path)
				if err != nil {
					cfgLog.Error("config_reload_failed", slog.String("error", err.Error()))
					continue
				}
				cfgLog.Info("config_reloaded", slog.String("path", path))
				fn(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cfgLog.Warn("config_watch_error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
