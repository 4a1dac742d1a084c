package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

// Migrate creates the tables this service owns. The collaborator tables
// (farmers, lots, quality_assessments) are managed elsewhere and only read.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		logger.Error("Failed to create pgcrypto extension", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.PaymentTransaction{},
		&model.Tip{},
		&model.Payout{},
		&model.WebhookEvent{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createConstraints(db); err != nil {
		logger.Error("Failed to create constraints", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createConstraints adds checks gorm tags cannot express.
func createConstraints(db *gorm.DB) error {
	stmts := []string{
		`DO $$ BEGIN
			ALTER TABLE wallets ADD CONSTRAINT chk_wallets_balance_non_negative CHECK (balance >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`DO $$ BEGIN
			ALTER TABLE wallet_transactions ADD CONSTRAINT chk_wallet_tx_amount_positive CHECK (amount > 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_unsettled ON payouts (updated_at) WHERE status = 'processing' OR needs_reconciliation`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_failed ON webhook_events (received_at) WHERE status = 'failed'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
