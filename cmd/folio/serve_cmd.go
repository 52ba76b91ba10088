package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/folio-press/folio/internal/config"
	"github.com/folio-press/folio/internal/eventbus"
	"github.com/folio-press/folio/internal/highlight"
	"github.com/folio-press/folio/internal/kvstore"
	"github.com/folio-press/folio/internal/logging"
	"github.com/folio-press/folio/internal/web"
)

type serveOptions struct {
	configPath string
	listen     string
	token      string
}

func parseServeFlags(args []string, stdout io.Writer) (serveOptions, error) {
	var opts serveOptions
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&opts.configPath, "config", "", "Config file (default: $"+config.EnvPath+" or the user config dir)")
	fs.StringVar(&opts.listen, "listen", "", "Listen address, overrides [server] listen")
	fs.StringVar(&opts.token, "token", "", "Bearer token for API/WS access, overrides [server] token")

	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: folio serve [options]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Run the HTTP server. The config file is reloaded when it changes.")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintln(stdout, "  folio serve")
		fmt.Fprintln(stdout, "  folio serve -listen 127.0.0.1:9000 -token s3cret")
	}

	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return opts, fmt.Errorf("resolve config path: %w", err)
		}
		opts.configPath = p
	}
	return opts, nil
}

// applyConfig applies the settings that can change without a restart.
func applyConfig(cfg config.Config) error {
	logging.SetLevel(cfg.Log.Level)
	highlight.SetCacheSize(cfg.Highlight.CacheSize)
	return highlight.SetStyle(cfg.Highlight.Style)
}

func runServe(args []string, stdout io.Writer) error {
	opts, err := parseServeFlags(args, stdout)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromPath(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	if opts.token != "" {
		cfg.Server.Token = opts.token
	}

	logging.Setup(cfg.LogOptions())
	defer func() { _ = logging.Close() }()
	if err := applyConfig(cfg); err != nil {
		return err
	}

	store, err := kvstore.Open(cfg.Settings.Backend, cfg.Settings.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	server := web.NewServer(web.Config{
		ListenAddr: cfg.Server.Listen,
		Token:      cfg.Server.Token,
		RateLimit:  cfg.Server.RateLimit,
		Burst:      cfg.Server.Burst,
		Store:      store,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logging.ForComponent(logging.CompConfig)
	err = config.Watch(ctx, opts.configPath, func(next config.Config) {
		if err := applyConfig(next); err != nil {
			log.Warn("config_apply_failed", slog.String("error", err.Error()))
			return
		}
		log.Info("config_reloaded", slog.String("path", opts.configPath))
		server.EventBus().Emit(eventbus.Event{Type: eventbus.EventConfigReloaded})
	})
	if err != nil {
		log.Warn("config_watch_unavailable", slog.String("error", err.Error()))
	}

	fmt.Fprintf(stdout, "folio server: http://%s\n", server.Addr())
	fmt.Fprintln(stdout, "Press Ctrl+C to stop.")

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		fmt.Fprintln(stdout, "\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}
