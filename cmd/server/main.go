// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Postlens server: ingests influencer post CSV exports into DuckDB and
// serves aggregate statistics, rankings, and noun frequency analysis.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmori/postlens/internal/api"
	"github.com/kmori/postlens/internal/config"
	"github.com/kmori/postlens/internal/database"
	"github.com/kmori/postlens/internal/ingest"
	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/tokenizer"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Postlens starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close database")
		}
	}()

	history, err := ingest.OpenHistory(cfg.Import.HistoryPath, cfg.Import.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to open import history: %w", err)
	}
	defer func() {
		if closeErr := history.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close import history")
		}
	}()

	failures := ingest.NewFailureLog(cfg.Import.FailureLogPath)
	store := ingest.NewGuardedStore(db)
	pipeline := ingest.NewPipeline(store, &cfg.Import, failures)

	// The tokenizer dictionary loads lazily on first use; the provider
	// is shared so concurrent first callers trigger one load.
	tokens := tokenizer.NewProvider()

	handlers := api.NewHandlers(cfg, db, pipeline, historyOrNil(history), tokens)
	router := api.NewRouter(cfg, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logging.Info().Msg("Postlens stopped")
	return nil
}

// historyOrNil avoids handing the handlers a typed-nil RunHistory
// interface when history is disabled.
func historyOrNil(h *ingest.History) api.RunHistory {
	if h == nil {
		return nil
	}
	return h
}
