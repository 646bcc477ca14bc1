package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/stylegrab/api"
	"github.com/use-agent/stylegrab/api/handler"
	"github.com/use-agent/stylegrab/cache"
	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/scraper"
	"github.com/use-agent/stylegrab/storage"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	slog.SetDefault(config.NewLogger(cfg.Log, os.Stdout))
	slog.Info("stylegrab starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Browser.DefaultEngine,
	)

	// ── 3. Initialise scraper (sessions launch per scrape) ──────────
	// HTTP callers must never reach the server's disk through file:// URLs.
	cfg.Browser.AllowFileURLs = false
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}

	// ── 4. Cache + optional S3 archive ──────────────────────────────
	cc := cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)

	var ar handler.Archiver
	if cfg.Storage.Enabled() {
		archive, err := storage.NewArchive(context.Background(), cfg.Storage, slog.Default())
		if err != nil {
			slog.Error("failed to initialise archive", "error", err)
			os.Exit(1)
		}
		ar = archive
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, cfg, cc, ar, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A scrape in flight holds its session until it returns; give it the
	// configured settle delay plus a margin to release cleanly.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.SettleDelay+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("stylegrab stopped")
}
