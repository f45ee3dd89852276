package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlevkov/iptv-catalog/app/api"
	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/cfg"
	"github.com/mlevkov/iptv-catalog/app/database"
	"github.com/mlevkov/iptv-catalog/app/fetch"
	"github.com/mlevkov/iptv-catalog/app/healthcheck"
	"github.com/mlevkov/iptv-catalog/app/sources"
	"github.com/mlevkov/iptv-catalog/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting IPTV Catalog server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	store := database.NewStore(db)

	definitionCache := sources.NewDefinitionCache(appCfg.SourcesDir)
	if err := definitionCache.Run(); err != nil {
		slog.Error("Failed to load source definitions", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source definitions loaded", "count", definitionCache.GetDefinitionCount())

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	remote := fetch.NewHTTP(fetchTimeout, appCfg.UserAgent)
	local := fetch.NewFile()

	pipeline := catalog.NewPipeline(store, remote, local)
	query := catalog.NewQuery(store, appCfg.HistoryLimit)
	prober := healthcheck.NewProber(store, fetchTimeout, appCfg.UserAgent,
		appCfg.HealthFanOut, appCfg.HealthThreshold)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(definitionCache, store, pipeline, prober)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(store, query, pipeline, definitionCache, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
