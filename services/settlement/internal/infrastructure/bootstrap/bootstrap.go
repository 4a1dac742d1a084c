// Package bootstrap assembles the settlement services from configuration. It
// is shared by the API server and the reconciliation job.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/pricing"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/crypto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/database"
	providerFactory "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

// Container holds the wired services and the resources that must be closed.
type Container struct {
	DB       *gorm.DB
	Repos    *database.Repositories
	Sink     event.Sink
	Checkout provider.CheckoutProvider
	Rail     provider.PayoutRail

	Ledger   *usecase.LedgerService
	Payments *usecase.PaymentService
	Tips     *usecase.TipService
	Webhooks *usecase.WebhookService
	Payouts  *usecase.PayoutService

	closers []func() error
	logger  *zap.Logger
}

// Build connects to the database, runs migrations and wires every service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{logger: logger}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	c.DB = db
	c.closers = append(c.closers, func() error { return database.Close(db, logger) })

	if err := database.Migrate(db, logger); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.wire(ctx, cfg, database.NewRepositories(db, logger)); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context, cfg *config.Config, repos *database.Repositories) error {
	c.Repos = repos

	values, err := cfg.Settlement.Values()
	if err != nil {
		return err
	}
	rules, err := cfg.Settlement.CertificationRules()
	if err != nil {
		return err
	}

	sink, closers, err := NewEventSink(ctx, cfg, repos.AuditLogs, c.logger)
	if err != nil {
		return err
	}
	c.Sink = sink
	c.closers = append(c.closers, closers...)

	factory := providerFactory.NewFactory(cfg, c.logger)
	if c.Checkout, err = factory.CheckoutProvider(); err != nil {
		return fmt.Errorf("failed to create checkout provider: %w", err)
	}
	if c.Rail, err = factory.PayoutRail(); err != nil {
		return fmt.Errorf("failed to create payout rail: %w", err)
	}

	cipher, err := crypto.NewDestinationCipher(cfg.Encryption.Key)
	if err != nil {
		return fmt.Errorf("failed to create destination cipher: %w", err)
	}

	c.Ledger = usecase.NewLedgerService(repos.Wallets, sink, c.logger.Named("ledger"), values.Currency)

	c.Payments = usecase.NewPaymentService(
		repos.Payments,
		repos.Directory,
		repos.Directory,
		repos.Directory,
		pricing.NewCalculator(rules),
		usecase.PaymentServiceConfig{
			ApprovalThreshold: values.ApprovalThreshold,
			DefaultCurrency:   values.Currency,
		},
		sink,
		c.logger.Named("payments"),
		usecase.NewWalletSettlement(c.Ledger),
		usecase.NewMobileMoneySettlement(c.Rail, repos.Directory, c.logger.Named("payments")),
		usecase.BankTransferSettlement{},
	)

	c.Tips = usecase.NewTipService(
		repos.Tips,
		repos.Directory,
		repos.Directory,
		c.Checkout,
		usecase.TipServiceConfig{
			PlatformFeeRate: values.PlatformFeeRate,
			DefaultCurrency: values.Currency,
			ReturnURL:       cfg.Checkout.ReturnURL,
			CancelURL:       cfg.Checkout.CancelURL,
			WebhookURL:      cfg.Checkout.WebhookURL,
		},
		sink,
		c.logger.Named("tips"),
	)

	c.Webhooks = usecase.NewWebhookService(repos.Tips, repos.WebhookEvents, repos.Transactor, c.Ledger, sink, c.logger.Named("webhooks"))

	c.Payouts = usecase.NewPayoutService(
		repos.Payouts,
		repos.Directory,
		c.Ledger,
		c.Rail,
		cipher,
		usecase.PayoutServiceConfig{
			MinPayout:       values.MinPayout,
			DefaultCurrency: values.Currency,
			RailTimeout:     cfg.Payout.Timeout,
		},
		sink,
		c.logger.Named("payouts"),
	)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Error("Failed to release resource", zap.Error(err))
		}
	}
	c.closers = nil
}
