package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cesargomez89/navidrums/internal/analysis"
	"github.com/cesargomez89/navidrums/internal/config"
	"github.com/cesargomez89/navidrums/internal/extractor"
	"github.com/cesargomez89/navidrums/internal/httpapi"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/playlist"
	"github.com/cesargomez89/navidrums/internal/preset"
	"github.com/cesargomez89/navidrums/internal/store"
	"github.com/cesargomez89/navidrums/internal/taskmanager"

	"github.com/cesargomez89/navidrums/internal/export"
)

// Exit codes per spec.md §6: the core does not own process lifecycle, but
// exposes a clean shutdown and these are the codes a host wrapper should use.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitDataRootError = 2
	exitPortBindError = 3
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		logger.Default().Error("configuration error", "error", err)
		os.Exit(exitConfigError)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		log.Error("failed to create data root", "path", cfg.DataRoot, "error", err)
		os.Exit(exitDataRootError)
	}

	cacheStore, err := store.New(cfg.DataRoot, cfg.CacheTTL(), extractor.AnalysisVersion, log)
	if err != nil {
		log.Error("failed to open cache store", "error", err)
		os.Exit(exitDataRootError)
	}

	presets, err := preset.New(cfg.PresetsDir())
	if err != nil {
		log.Error("failed to open presets directory", "error", err)
		os.Exit(exitDataRootError)
	}
	if err := os.MkdirAll(cfg.ExportsDir(), 0o755); err != nil {
		log.Error("failed to create exports directory", "error", err)
		os.Exit(exitDataRootError)
	}

	tasks := taskmanager.New(cfg.GlobalTaskCeiling, log)
	defer tasks.Shutdown()

	pipeline := &analysis.Pipeline{
		MaxWorkers:      cfg.MaxWorkers,
		MinFileSizeKB:   cfg.MinFileSizeKB,
		MaxFileSizeMB:   cfg.MaxFileSizeMB,
		AnalysisTimeout: cfg.AnalysisTimeout(),
		Store:           cacheStore,
		Extractor:       extractor.NewTagProbeExtractor(),
		Logger:          log,
	}

	engine := &playlist.Engine{
		Provider:  cacheStore,
		BeamWidth: cfg.BeamWidth,
		Logger:    log,
	}

	exporter := &export.Exporter{
		Provider:   cacheStore,
		ExportsDir: cfg.ExportsDir(),
	}

	handler := &httpapi.Handler{
		Config:   cfg,
		Store:    cacheStore,
		Tasks:    tasks,
		Pipeline: pipeline,
		Engine:   engine,
		Exporter: exporter,
		Presets:  presets,
		Logger:   log,
	}

	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed to bind", "error", err)
			os.Exit(exitPortBindError)
		}
	case <-quit:
		log.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := cacheStore.Flush(); err != nil {
		log.Error("failed to flush cache index on shutdown", "error", err)
	}

	log.Info("server exited")
	os.Exit(exitOK)
}
