package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myvcs/internal/api"
	"myvcs/internal/config"
	"myvcs/internal/logging"
	"myvcs/internal/middleware"
	"myvcs/internal/repository"
	"myvcs/internal/workspace"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFile(config.Path())
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	root, err := workspace.FindRoot(cfg.Repository.Path, config.ControlDir)
	if err != nil {
		logger.Fatal("no repository to serve", zap.String("path", cfg.Repository.Path), zap.Error(err))
	}

	opts := repository.Options{CacheSize: cfg.Repository.CacheSize}
	handler := api.NewRepoHandler(root, opts, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", api.Health)
	handler.Register(mux)

	// Outermost last: request ids are assigned before anything logs.
	chain := middleware.Chain(
		mux,
		middleware.Compress(1024),
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RequestID,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			zap.String("address", addr),
			zap.String("repository", root),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
