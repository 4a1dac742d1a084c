package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// walletRepository implements the WalletRepository interface
type walletRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWalletRepository creates a new wallet repository instance
func NewWalletRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WalletRepository {
	return &walletRepository{
		db:     db,
		logger: logger,
	}
}

func (r *walletRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID) (*model.Wallet, error) {
	var wallet model.Wallet
	err := conn(ctx, r.db).Where("farmer_id = ?", farmerID).First(&wallet).Error
	if err != nil {
		return nil, translate(err)
	}
	return &wallet, nil
}

// Post applies one ledger entry under a row lock on the wallet.
func (r *walletRepository) Post(ctx context.Context, params model.EntryParams, defaultCurrency string) (*domainRepo.EntryResult, error) {
	var result *domainRepo.EntryResult

	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		wallet, err := r.lockWallet(tx, params, defaultCurrency)
		if err != nil {
			return err
		}

		// Idempotency: a reference is applied at most once, and only ever
		// replays an entry of this wallet.
		if params.Reference != "" {
			var existing model.WalletTransaction
			res := tx.Where("reference = ?", params.Reference).Limit(1).Find(&existing)
			if res.Error != nil {
				return fmt.Errorf("failed to check entry reference: %w", res.Error)
			}
			if res.RowsAffected > 0 && existing.WalletID != wallet.ID {
				return fmt.Errorf("reference %q belongs to another wallet: %w", params.Reference, domainRepo.ErrDuplicate)
			}
			if res.RowsAffected > 0 {
				r.logger.Info("Ledger entry already applied (idempotency)",
					zap.String("reference", params.Reference),
					zap.String("farmer_id", params.FarmerID.String()))
				result = &domainRepo.EntryResult{Wallet: *wallet, Transaction: existing, Duplicate: true}
				return nil
			}
		}

		entry, err := model.PostEntry(wallet, params, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create wallet transaction: %w", translate(err))
		}

		err = tx.Model(wallet).
			Select("balance", "version", "last_updated", "updated_at").
			Updates(wallet).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet balance: %w", err)
		}

		result = &domainRepo.EntryResult{Wallet: *wallet, Transaction: *entry}
		return nil
	})
	if err != nil {
		var insufficient *domainErrors.InsufficientBalanceError
		if !errors.As(err, &insufficient) && !errors.Is(err, domainRepo.ErrDuplicate) {
			r.logger.Error("Failed to post ledger entry",
				zap.String("farmer_id", params.FarmerID.String()),
				zap.String("type", string(params.Type)),
				zap.String("amount", params.Amount.String()),
				zap.String("reference", params.Reference),
				zap.Error(err))
		}
		return nil, err
	}

	return result, nil
}

// lockWallet selects the farmer's wallet FOR UPDATE. Deposits create it
// first; concurrent creators race on the farmer_id unique index and the
// loser re-reads the winner's row.
func (r *walletRepository) lockWallet(tx *gorm.DB, params model.EntryParams, defaultCurrency string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farmer_id = ?", params.FarmerID).
		First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if params.Type != model.EntryTypeDeposit {
		return nil, domainErrors.NewInsufficientBalanceError(params.Amount, decimal.Zero)
	}

	currency := params.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	created := model.NewWallet(params.FarmerID, currency, time.Now().UTC())
	err = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "farmer_id"}}, DoNothing: true}).
		Create(created).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farmer_id = ?", params.FarmerID).
		First(&wallet).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	r.logger.Info("Created wallet on first credit",
		zap.String("farmer_id", params.FarmerID.String()),
		zap.String("currency", wallet.Currency))
	return &wallet, nil
}

func (r *walletRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*model.WalletTransaction, error) {
	var entry model.WalletTransaction
	if err := conn(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, filter domainRepo.TransactionFilter) ([]model.WalletTransaction, int64, error) {
	query := conn(ctx, r.db).Model(&model.WalletTransaction{}).Where("wallet_id = ?", walletID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	var entries []model.WalletTransaction
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return entries, total, nil
}

func (r *walletRepository) SumEntries(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := conn(ctx, r.db).Model(&model.WalletTransaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN -amount ELSE amount END), 0) AS total, COUNT(*) AS count", model.EntryTypeWithdrawal).
		Where("wallet_id = ?", walletID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum wallet transactions: %w", err)
	}
	return row.Total, row.Count, nil
}

func (r *walletRepository) ListWallets(ctx context.Context, offset, limit int) ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := conn(ctx, r.db).Order("id").Offset(offset).Limit(limit).Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
