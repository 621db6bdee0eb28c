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

	"github.com/lysyi3m/cpe-tracker/app/api"
	"github.com/lysyi3m/cpe-tracker/app/cfg"
	"github.com/lysyi3m/cpe-tracker/app/feed"
	"github.com/lysyi3m/cpe-tracker/app/storage"
	"github.com/lysyi3m/cpe-tracker/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg)

	slog.Info("Starting CPE Tracker", "version", appCfg.Version, "csv_path", appCfg.CSVPath, "feeds_path", appCfg.FeedsPath)

	records := storage.NewRecordStore(appCfg.CSVPath)
	feeds := storage.NewFeedStore(appCfg.FeedsPath)

	if _, err := records.ReadAll(); err != nil {
		slog.Error("Failed to open record store", "path", appCfg.CSVPath, "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.FetchTimeout)
	pipeline := feed.NewPipeline(fetcher, feed.NewParser(), feed.NewNormalizer(feed.NewClassifier()), appCfg.FetchConcurrency)

	scheduler := tasks.NewScheduler(func() tasks.TaskInterface {
		return tasks.NewIngestTask(feeds, pipeline, records)
	}, tasks.SchedulerOptions{
		Interval:     appCfg.FetchInterval,
		InitialDelay: appCfg.InitialFetchDelay,
		WorkerCount:  appCfg.WorkerCount,
	})
	scheduler.Start()

	handler := api.NewHandler(records, feeds, pipeline, fetcher, feed.NewContentExtractor(), api.HandlerOptions{
		MaxUploadSize: appCfg.MaxUploadSize,
		Version:       appCfg.Version,
	})
	router := api.NewServer(handler, api.ServerOptions{
		APIAccessKey:   appCfg.APIAccessKey,
		FetchRateLimit: appCfg.FetchRateLimit,
	})

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual fetch and backfills are synchronous
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("CPE Tracker shutdown complete")
}

func setupLogger(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
