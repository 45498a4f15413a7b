// Command exchange runs the empire exchange web server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/empire-exchange/internal/accounts"
	"github.com/talgya/empire-exchange/internal/api"
	"github.com/talgya/empire-exchange/internal/config"
	"github.com/talgya/empire-exchange/internal/persistence"
)

func main() {
	configPath := flag.String("config", os.Getenv("EXCHANGE_CONFIG"), "path to an HCL config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.SlogLevel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Empire Exchange starting", "config", *configPath, "sources", len(cfg.Sources))

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	if counts, err := db.CountByStatus(); err == nil {
		slog.Info("empires on file",
			"approved", counts[persistence.StatusApproved],
			"pending", counts[persistence.StatusPending],
		)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("EXCHANGE_ADMIN_KEY not set, moderation endpoints disabled")
	}
	apiServer, err := api.NewServer(cfg, db, accounts.NewManager(db, 0))
	if err != nil {
		slog.Error("failed to configure API", "error", err)
		os.Exit(1)
	}
	apiServer.Start()

	fmt.Printf("Exchange is open: http://localhost%s/\n", cfg.Addr)

	// ── Wait ──────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	fmt.Println("Exchange stopped.")
}
