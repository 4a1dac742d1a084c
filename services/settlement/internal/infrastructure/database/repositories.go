package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/adapter/repository"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Transactor    domainRepo.Transactor
	Wallets       domainRepo.WalletRepository
	Payments      domainRepo.PaymentTransactionRepository
	Tips          domainRepo.TipRepository
	Payouts       domainRepo.PayoutRepository
	WebhookEvents domainRepo.WebhookEventRepository
	AuditLogs     domainRepo.AuditLogRepository
	Directory     *repository.Directory
}

func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transactor:    repository.NewTransactor(db),
		Wallets:       repository.NewWalletRepository(db, logger),
		Payments:      repository.NewPaymentTransactionRepository(db, logger),
		Tips:          repository.NewTipRepository(db, logger),
		Payouts:       repository.NewPayoutRepository(db, logger),
		WebhookEvents: repository.NewWebhookEventRepository(db, logger),
		AuditLogs:     repository.NewAuditLogRepository(db),
		Directory:     repository.NewDirectoryRepository(db),
	}
}
