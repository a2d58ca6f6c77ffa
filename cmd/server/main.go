package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribeworks/vidscribe/internal/api"
	"github.com/scribeworks/vidscribe/internal/api/handler"
	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/downloader"
	"github.com/scribeworks/vidscribe/internal/poller"
	"github.com/scribeworks/vidscribe/internal/service"
	"github.com/scribeworks/vidscribe/internal/store"
	"github.com/scribeworks/vidscribe/pkg/ffmpeg"
	"github.com/scribeworks/vidscribe/pkg/gemini"
	"github.com/scribeworks/vidscribe/pkg/perplexity"
	"github.com/scribeworks/vidscribe/pkg/sheets"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidscribe %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting vidscribe",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	for _, dir := range []string{cfg.Storage.VideoPath, cfg.Storage.AudioPath, cfg.Storage.TempPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create storage directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// Initialize dependencies
	resources := store.New(logger)
	janitor := store.NewJanitor(resources, cfg.Retention.MaxAge, cfg.Retention.SweepInterval, logger)
	dl := downloader.NewYtDlpDownloader(cfg.Download, logger)

	extractor, err := ffmpeg.NewExtractor()
	if err != nil {
		logger.Error("ffmpeg not available", "error", err)
		os.Exit(1)
	}

	geminiClient := gemini.NewClient(cfg.Gemini)
	perplexityClient := perplexity.NewClient(cfg.Perplexity)
	sheetsClient := sheets.NewClient(cfg.Sheets)

	// Initialize services
	pipeline := service.NewPipeline(
		resources,
		dl,
		extractor,
		geminiClient,
		perplexityClient,
		geminiClient,
		sheetsClient,
		cfg.Storage,
		cfg.Generation,
	)

	opPoller := poller.New(geminiClient, cfg.Generation, logger)
	videoGen := service.NewVideoGenerator(geminiClient, opPoller, cfg.Generation)

	// Initialize handlers
	pipelineHandler := handler.NewPipelineHandler(pipeline, logger)
	generateHandler := handler.NewGenerateHandler(videoGen, logger)
	mediaHandler := handler.NewMediaHandler(resources, logger)
	statusHandler := handler.NewStatusHandler(resources, handler.Features{
		FactCheck:       pipeline.FactCheckAvailable(),
		SheetsExport:    pipeline.SheetsAvailable(),
		VideoGeneration: true,
	})

	// Setup router
	router := api.NewRouter(pipelineHandler, generateHandler, mediaHandler, statusHandler, logger, cfg.Server.APIKey)

	// Start retention sweeps
	janitor.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop retention sweeps
	janitor.Stop()

	logger.Info("shutdown complete")
}
