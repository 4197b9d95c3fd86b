// Command rosed serves the UUID-addressed image store described in
// httpapi over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/optizone/rose/cache"
	"github.com/optizone/rose/fsmanager"
	"github.com/optizone/rose/httpapi"
)

const (
	cachePublishInterval = time.Second
	shutdownGracePeriod  = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("rosed: configuration failed", "err", err)
		os.Exit(1)
	}

	c := cache.New(cachePublishInterval,
		cache.WithMaxBytes(cfg.maxCacheSize),
		cache.WithLogger(logger),
	)
	defer c.Close()

	manager := fsmanager.New(cfg.filesDir, c,
		fsmanager.WithMaxCacheEntrySize(cfg.maxCacheEntrySize),
		fsmanager.WithLogger(logger),
	)

	router := httpapi.NewRouter(manager, httpapi.WithLogger(logger))

	server := &http.Server{
		Addr:         cfg.serverAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("rosed: listening", "addr", cfg.serverAddress, "files_dir", cfg.filesDir)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rosed: server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-signalChan:
		logger.Info("rosed: shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("rosed: graceful shutdown failed", "err", err)
		}
	}
}
