// Package main is the entrypoint for the cropwise API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/cropwise/internal/api"
	"github.com/kiranshivaraju/cropwise/internal/api/handler"
	mw "github.com/kiranshivaraju/cropwise/internal/api/middleware"
	"github.com/kiranshivaraju/cropwise/internal/api/response"
	"github.com/kiranshivaraju/cropwise/internal/cache"
	"github.com/kiranshivaraju/cropwise/internal/config"
	"github.com/kiranshivaraju/cropwise/internal/knowledge"
	"github.com/kiranshivaraju/cropwise/internal/ledger"
	"github.com/kiranshivaraju/cropwise/internal/model"
	"github.com/kiranshivaraju/cropwise/internal/recommend"
	"github.com/kiranshivaraju/cropwise/internal/store"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "ledger_driver", cfg.Ledger.Driver)

	// 2. Load the model artifact. The server never starts without one.
	adapter, err := model.Load(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	slog.Info("model loaded",
		"classifier", adapter.Name(),
		"classes", len(adapter.Classes()),
		"fingerprint", adapter.Fingerprint(),
	)

	// 3. Load crop knowledge (degrades to defaults, never fails)
	table := knowledge.Load(cfg.Knowledge.Path)

	// 4. Open the prediction ledger
	ledgerStore, err := store.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledgerStore.Close()
	slog.Info("prediction ledger ready", "driver", cfg.Ledger.Driver)

	// 5. Optional Redis cache
	var (
		c         cache.Cache = cache.Nop{}
		rateLimit *mw.RateLimit
	)
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		c = redisCache
		rateLimit = mw.NewRateLimit(redisCache, cfg.Redis.RateLimitPerMinute)
		slog.Info("redis connected")
	}

	// 6. Build the recommendation service
	svc := recommend.NewService(adapter, table, ledger.New(ledgerStore), recommend.Options{
		Cache:         c,
		CacheTTL:      cfg.Redis.PredictionCacheTTL,
		AppendTimeout: cfg.Ledger.AppendTimeout,
	})
	// Drain background appends before the ledger closes.
	defer svc.Close()

	// 7. Build router with dependencies
	var healthCache pinger
	if cfg.Redis.Enabled() {
		healthCache = c
	}
	router := api.NewRouter(api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:  healthHandler(svc, healthCache),
		PredictHandler: handler.NewPredictHandler(svc),
		RecentHandler:  handler.NewRecentHandler(svc),
		ExportHandler:  handler.NewExportHandler(svc),
	})

	// 8. Serve until the context is cancelled
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, srv)
}

// serve runs srv until ctx is cancelled or the listener fails, then drains
// connections within shutdownTimeout.
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks ledger and cache connectivity. A nil cache is
// reported as disabled and never degrades the service.
func healthHandler(l pinger, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"ledger": "ok",
			"cache":  "disabled",
		}

		if err := l.Ping(r.Context()); err != nil {
			checks["ledger"] = "degraded"
		}
		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
			}
		}

		if checks["ledger"] == "degraded" || checks["cache"] == "degraded" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
