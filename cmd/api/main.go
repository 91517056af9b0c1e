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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/di"
	"github.com/prohmpiriya/jelli-fit/internal/router"
	"github.com/prohmpiriya/jelli-fit/pkg/config"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("jelli-fit-api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:        cfg.App.LogLevel,
		ServiceName:  cfg.App.Name,
		Development:  cfg.IsDevelopment(),
		OutputPath:   "stdout",
		OTLPEnabled:  cfg.OTel.Enabled,
		OTLPEndpoint: cfg.OTel.CollectorAddr,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLog := logger.Get()
	defer func() { _ = appLog.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Namespace:      cfg.OTel.Namespace,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		MetricInterval: cfg.OTel.MetricInterval,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if cfg.IsProduction() || !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := di.NewContainer(ctx, &di.ContainerConfig{Config: cfg, Logger: appLog})
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer container.Close()

	if container.CleanupWorker != nil {
		container.CleanupWorker.Start(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.New(container.RouterConfig(), container.Handlers()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		appLog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("server stopped")
	return nil
}
