// Package main is the entry point for the gthanks server.
//
// MAIN PACKAGE IN GO:
// main stays minimal. Its job is to:
//  1. Read configuration (config.Load: TOML file, .env, environment)
//  2. Create the infrastructure that depends on the deployment (log sink,
//     rate limit backend)
//  3. Start the application and turn OS signals into context cancellation
//
// Everything else lives in internal/server and the packages it wires.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sakif/gthanks/internal/config"
	"github.com/sakif/gthanks/internal/ratelimit"
	"github.com/sakif/gthanks/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. LOGGING ===
	// Logs always go to stdout. With LOG_FILE set they are also written to a
	// file that lumberjack rotates by size.
	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer rotating.Close()
		out = io.MultiWriter(os.Stdout, rotating)
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Log.Level}))
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; the SQLite driver will not create parents.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Cancelled on Ctrl+C or SIGTERM; Start shuts down when it fires.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === 4. RATE LIMIT BACKEND ===
	// Redis shares the counters between instances. Without REDIS_URL the
	// server falls back to an in-process store.
	var opts []server.Option
	limit := ratelimit.Limit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	if cfg.RateLimit.RedisURL != "" && !limit.Disabled() {
		store, err := ratelimit.NewRedisStore(ctx, cfg.RateLimit.RedisURL, limit)
		if err != nil {
			return err
		}
		logger.Info("rate limiting backed by redis")
		opts = append(opts, server.WithRateLimitStore(store))
	}

	// === 5. START ===
	srv, err := server.New(cfg, logger, opts...)
	if err != nil {
		// New has already closed the redis store.
		return err
	}
	return srv.Start(ctx)
}
