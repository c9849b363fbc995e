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

	"github.com/waxlog/waxlog/internal/api"
	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/config"
	"github.com/waxlog/waxlog/internal/database"
	"github.com/waxlog/waxlog/internal/goal"
	"github.com/waxlog/waxlog/internal/imaging"
	"github.com/waxlog/waxlog/internal/logging"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/provider/discogs"
	"github.com/waxlog/waxlog/internal/provider/musicbrainz"
	"github.com/waxlog/waxlog/internal/reconcile"
	"github.com/waxlog/waxlog/internal/release"
	"github.com/waxlog/waxlog/internal/stats"
	"github.com/waxlog/waxlog/internal/submission"
	"github.com/waxlog/waxlog/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("WL_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Datastore services
	catalogService := catalog.NewService(db)
	releaseService := release.NewService(db)
	goalService := goal.NewService(db)
	statsEngine := stats.NewEngine(db)

	// External catalog adapters share one rate limiter map so every call
	// site observes the same pacing.
	rateLimiters := provider.NewRateLimiterMap()
	mbAdapter := musicbrainz.New(rateLimiters, logger)
	coverArt := musicbrainz.NewCoverArtClient(rateLimiters, logger)
	discogsAdapter := discogs.New(rateLimiters, cfg.Discogs.Token, logger)

	imageResolver := imaging.NewResolver(coverArt, discogsAdapter, cfg.Images.BasePath, logger)
	reconciler := reconcile.New(catalogService, mbAdapter, imageResolver, logger)
	orchestrator := submission.New(releaseService, goalService, reconciler,
		mbAdapter, imageResolver, cfg.Location(), logger)

	router := api.NewRouter(api.RouterDeps{
		CatalogService: catalogService,
		ReleaseService: releaseService,
		GoalService:    goalService,
		StatsEngine:    statsEngine,
		Search:         mbAdapter,
		Orchestrator:   orchestrator,
		Logger:         logger,
		BasePath:       cfg.Server.BasePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version.Version),
			slog.String("commit", version.Commit))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
