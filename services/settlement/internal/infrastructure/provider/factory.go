package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/provider/hosted"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/provider/mobilemoney"
	stripeProvider "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/infrastructure/provider/stripe"
)

// Factory builds the outbound processors from configuration.
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// CheckoutProvider returns the processor named by checkout.provider.
func (f *Factory) CheckoutProvider() (provider.CheckoutProvider, error) {
	return f.GetCheckoutProvider(provider.ProviderType(f.config.Checkout.Provider))
}

func (f *Factory) GetCheckoutProvider(providerType provider.ProviderType) (provider.CheckoutProvider, error) {
	switch providerType {
	case provider.ProviderTypeHosted, "":
		return f.createHostedProvider()
	case provider.ProviderTypeStripe:
		return f.createStripeProvider()
	default:
		return nil, fmt.Errorf("unsupported checkout provider: %s", providerType)
	}
}

func (f *Factory) createHostedProvider() (provider.CheckoutProvider, error) {
	c := f.config.Checkout
	if c.BaseURL == "" {
		return nil, fmt.Errorf("checkout base URL not configured")
	}
	if c.WebhookSecret == "" {
		f.logger.Warn("checkout webhook secret not configured; every webhook will be rejected")
	}
	return hosted.NewProvider(hosted.Config{
		BaseURL:       c.BaseURL,
		APIKey:        c.APIKey,
		APISecret:     c.APISecret,
		WebhookSecret: c.WebhookSecret,
		Tolerance:     c.WebhookTolerance,
		Timeout:       c.Timeout,
	}, f.logger.Named("hosted")), nil
}

func (f *Factory) createStripeProvider() (provider.CheckoutProvider, error) {
	s := f.config.Stripe
	if s.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}
	if s.WebhookSecret == "" {
		f.logger.Warn("stripe webhook secret not configured; every webhook will be rejected")
	}
	return stripeProvider.NewProvider(s.SecretKey, s.WebhookSecret, f.logger.Named("stripe")), nil
}

// PayoutRail returns the mobile-money disbursement rail.
func (f *Factory) PayoutRail() (provider.PayoutRail, error) {
	p := f.config.Payout
	if p.BaseURL == "" {
		return nil, fmt.Errorf("payout base URL not configured")
	}
	return mobilemoney.NewRail(mobilemoney.Config{
		BaseURL:   p.BaseURL,
		APIKey:    p.APIKey,
		APISecret: p.APISecret,
		Timeout:   p.Timeout,
	}, f.logger.Named("mobile_money")), nil
}
