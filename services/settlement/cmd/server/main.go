package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/logger"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/bootstrap"
	grpcServer "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/grpc"
	httpServer "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/http"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database, repositories, event sinks, providers and services
	app, err := bootstrap.Build(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize settlement service", zap.Error(err))
	}
	defer app.Close()

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Services{
		Ledger:   app.Ledger,
		Payments: app.Payments,
		Tips:     app.Tips,
		Webhooks: app.Webhooks,
		Payouts:  app.Payouts,
		Checkout: app.Checkout,
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
