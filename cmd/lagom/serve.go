package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johny-c/lagom/internal/handler"
	"github.com/johny-c/lagom/internal/hub"
	"github.com/johny-c/lagom/internal/lint"
	"github.com/johny-c/lagom/internal/probe"
	"github.com/johny-c/lagom/internal/repository/sqlite"
	"github.com/johny-c/lagom/internal/service"
	"github.com/johny-c/lagom/internal/watcher"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the manifest registry HTTP server",
	Long: `Starts the HTTP API. Manifests named in the config are imported on
startup and reimported whenever they change on disk. When index probing
is enabled, requirements are periodically verified against the package
index and status changes are pushed to clients over SSE.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Listen = serveAddr
	}
	if serveDB != "" {
		cfg.Database.Path = serveDB
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info("database opened", zap.String("path", cfg.Database.Path))

	eventBus := service.NewEventBus()

	sseHub := hub.New(logger)
	go sseHub.Run()

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Broadcast(event)
		}
	}()

	linter := lint.New(cfg.Lint.DisabledRules)
	svc := service.NewManifestService(repo, linter, eventBus, logger)

	manifestHandler := handler.NewManifestHandler(svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var prober *probe.Prober
	if cfg.Index.Enabled {
		index := probe.NewPyPIClient(cfg.Index.BaseURL, cfg.Index.TimeoutDuration())
		prober = probe.New(repo, index, eventBus, probe.Config{
			Interval:           cfg.Index.IntervalDuration(),
			Timeout:            cfg.Index.TimeoutDuration(),
			MaxConcurrent:      cfg.Index.MaxConcurrent,
			IncludePreReleases: cfg.Index.IncludePreReleases,
		}, logger)
		prober.Start(ctx)
		manifestHandler.SetVerifier(prober)
		logger.Info("index probing enabled",
			zap.String("base_url", cfg.Index.BaseURL),
			zap.Duration("interval", cfg.Index.IntervalDuration()))
	}

	// Import configured manifests and keep them fresh on file changes
	for _, path := range cfg.Manifests {
		if _, _, err := svc.LoadFile(ctx, path); err != nil {
			logger.Warn("initial manifest load failed", zap.String("path", path), zap.Error(err))
		}
	}
	if len(cfg.Manifests) > 0 {
		w := watcher.New(cfg.Manifests, func(path string) {
			if _, _, err := svc.LoadFile(context.Background(), path); err != nil {
				logger.Error("manifest reload failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		go func() {
			if err := w.Watch(ctx); err != nil {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	manifestHandler.Routes(mux)
	mux.Handle("GET /events", sseHub)

	finalHandler := handler.Chain(mux,
		handler.Recover(logger),
		handler.CORS,
		handler.Logger(logger),
	)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Listen))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancel()
	if prober != nil {
		prober.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
