package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
)

func TestFactory_CheckoutProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantType provider.ProviderType
		wantErr  bool
	}{
		{
			name:     "hosted",
			cfg:      config.Config{Checkout: config.CheckoutConfig{Provider: "hosted", BaseURL: "https://pay.example.com", WebhookSecret: "s"}},
			wantType: provider.ProviderTypeHosted,
		},
		{
			name:    "hosted without base url",
			cfg:     config.Config{Checkout: config.CheckoutConfig{Provider: "hosted"}},
			wantErr: true,
		},
		{
			name:     "stripe",
			cfg:      config.Config{Checkout: config.CheckoutConfig{Provider: "stripe"}, Stripe: config.StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec"}},
			wantType: provider.ProviderTypeStripe,
		},
		{
			name:    "stripe without key",
			cfg:     config.Config{Checkout: config.CheckoutConfig{Provider: "stripe"}},
			wantErr: true,
		},
		{
			name:    "unknown",
			cfg:     config.Config{Checkout: config.CheckoutConfig{Provider: "paypal"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			p, err := NewFactory(&cfg, zap.NewNop()).CheckoutProvider()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, p.Name())
		})
	}
}

func TestFactory_PayoutRail(t *testing.T) {
	_, err := NewFactory(&config.Config{}, zap.NewNop()).PayoutRail()
	assert.Error(t, err)

	rail, err := NewFactory(&config.Config{Payout: config.PayoutConfig{BaseURL: "https://mm.example.com"}}, zap.NewNop()).PayoutRail()
	require.NoError(t, err)
	assert.Equal(t, "mobile_money", rail.Name())
}
