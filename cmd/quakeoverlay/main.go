package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-overlay-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/quake-overlay-service/internal/adapter/http"
	"github.com/couchcryptid/quake-overlay-service/internal/cache"
	"github.com/couchcryptid/quake-overlay-service/internal/config"
	"github.com/couchcryptid/quake-overlay-service/internal/domain"
	"github.com/couchcryptid/quake-overlay-service/internal/engine"
	"github.com/couchcryptid/quake-overlay-service/internal/observability"
)

// alwaysReady serves readiness when no event feed is configured.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	// A missing .env file is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to read .env file", "error", envErr)
	}

	eng, err := engine.New(engine.Options{
		Cache: cache.Options{
			Policy:     cache.Policy(cfg.CachePolicy),
			MaxEntries: cfg.CacheSize,
		},
		Segments: cfg.CircleSegments,
	}, logger, metrics)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	logger.Info("computation caches ready", "policy", cfg.CachePolicy, "size", cfg.CacheSize)

	// Initialize event feed (feature-flagged via FEED_URL).
	var (
		source domain.EventSource
		ready  sharedobs.ReadinessChecker = alwaysReady{}
	)
	if cfg.FeedEnabled {
		client := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, feed.ClientOptions{
			AppID:    cfg.FeedAppID,
			PageSize: cfg.FeedPageSize,
		}, logger, metrics)
		cached := feed.NewCachedSource(client, cfg.FeedCacheTTL, clockwork.NewRealClock(), metrics)
		source, ready = cached, cached
		metrics.FeedEnabled.Set(1)
		logger.Info("event feed enabled", "url", cfg.FeedURL, "ttl", cfg.FeedCacheTTL, "timeout", cfg.FeedTimeout)
	} else {
		logger.Info("event feed disabled")
	}

	var catalog []domain.HistoricalQuake
	if cfg.HistoryFile != "" {
		catalog, err = feed.LoadCatalog(cfg.HistoryFile)
		if err != nil {
			logger.Error("failed to load historical catalog", "path", cfg.HistoryFile, "error", err)
			os.Exit(1)
		}
		logger.Info("historical catalog loaded", "path", cfg.HistoryFile, "records", len(catalog))
	}

	api := httpadapter.NewAPI(eng, source, catalog, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, cfg.CORSAllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
