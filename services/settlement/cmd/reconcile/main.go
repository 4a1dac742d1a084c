// Command reconcile checks wallet balances against their ledgers and settles
// payouts whose rail outcome is still unknown. It exits 1 when any wallet
// drifts or a payout could not be checked.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/logger"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/bootstrap"
)

func main() {
	var (
		farmer    string
		wallets   bool
		payouts   bool
		batchSize int
		limit     int
		timeout   time.Duration
	)
	flag.StringVar(&farmer, "farmer", "", "verify a single farmer's wallet")
	flag.BoolVar(&wallets, "wallets", true, "verify every wallet")
	flag.BoolVar(&payouts, "payouts", true, "reconcile payouts awaiting a rail outcome")
	flag.IntVar(&batchSize, "batch", 200, "wallets per verification batch")
	flag.IntVar(&limit, "limit", 500, "maximum payouts to reconcile")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.Named("reconcile")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize settlement service", zap.Error(err))
	}

	healthy := true

	var results []dto.WalletVerification
	switch {
	case farmer != "":
		farmerID, err := uuid.Parse(farmer)
		if err != nil {
			zapLogger.Fatal("Invalid farmer id", zap.String("farmer", farmer))
		}
		res, err := app.Ledger.Verify(ctx, farmerID)
		if err != nil {
			zapLogger.Error("Wallet verification failed", zap.Error(err))
			healthy = false
		} else {
			results = append(results, *res)
		}
	case wallets:
		results, err = app.Ledger.VerifyAll(ctx, batchSize)
		if err != nil {
			zapLogger.Error("Wallet verification failed", zap.Error(err))
			healthy = false
		}
	}

	drifted := 0
	for _, r := range results {
		if r.Consistent {
			continue
		}
		drifted++
		zapLogger.Warn("Wallet balance drift",
			zap.String("farmer_id", r.FarmerID.String()),
			zap.String("currency", r.Currency),
			zap.String("cached", r.CachedBalance.String()),
			zap.String("computed", r.ComputedBalance.String()),
			zap.String("drift", r.Drift.String()))
	}
	zapLogger.Info("Wallet verification finished",
		zap.Int("checked", len(results)),
		zap.Int("drifted", drifted))
	if drifted > 0 {
		healthy = false
	}

	if payouts && farmer == "" {
		summary, err := app.Payouts.ReconcileUnsettled(ctx, limit)
		if err != nil {
			zapLogger.Error("Payout reconciliation failed", zap.Error(err))
			healthy = false
		}
		zapLogger.Info("Payout reconciliation finished",
			zap.Int("checked", summary.Checked),
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed),
			zap.Int("open", summary.Open),
			zap.Int("errors", summary.Errors))
		if summary.Errors > 0 {
			healthy = false
		}
	}

	app.Close()
	if !healthy {
		os.Exit(1)
	}
}
