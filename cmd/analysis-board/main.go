package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/boardbuilder"
	appcfg "github.com/park285/Cheese-Analysis-Board/internal/config"
	"github.com/park285/Cheese-Analysis-Board/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := boardbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("board_init_error", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           deps.Server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.String("session", deps.Session.ID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_start")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("deps_close_error", zap.Error(err))
	}
	logger.Info("shutdown_done")
}
