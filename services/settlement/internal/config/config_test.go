package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/pricing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("service:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "settlement", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 9090, cfg.Server.GRPC.Port)
	assert.Equal(t, CheckoutProviderHosted, cfg.Checkout.Provider)
	assert.Equal(t, 30*time.Second, cfg.Payout.Timeout)
	assert.Equal(t, "settlement-events", cfg.Kafka.Topic)

	values, err := cfg.Settlement.Values()
	require.NoError(t, err)
	assert.Equal(t, "UGX", values.Currency)
	assert.True(t, values.PlatformFeeRate.Equal(decimal.RequireFromString("0.03")))
	assert.True(t, values.MinPayout.Equal(decimal.NewFromInt(5000)))
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SETTLEMENT_AUTH_JWT_SECRET", "from-env")
	t.Setenv("SETTLEMENT_SETTLEMENT_MIN_PAYOUT", "10000")
	t.Setenv("SETTLEMENT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Parse([]byte("auth:\n  jwt_secret: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "10000", cfg.Settlement.MinPayout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"fee rate of one", "settlement:\n  platform_fee_rate: \"1\"\n"},
		{"negative min payout", "settlement:\n  min_payout: \"-5\"\n"},
		{"unknown provider", "checkout:\n  provider: paypal\n"},
		{"unknown bonus kind", "settlement:\n  certification_bonuses:\n    - name: organic\n      kind: ratio\n      value: \"0.1\"\n"},
		{"bad yaml", "service: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSettlementConfig_CertificationRules(t *testing.T) {
	s := SettlementConfig{CertificationBonuses: []CertificationBonusEntry{
		{Name: "organic", Value: "0.06"},
		{Name: "direct-trade", Kind: "FLAT", Value: "150"},
	}}

	rules, err := s.CertificationRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, pricing.BonusPercent, rules[0].Kind)
	assert.Equal(t, pricing.BonusFlat, rules[1].Kind)
	assert.True(t, rules[1].Value.Equal(decimal.NewFromInt(150)))

	empty, err := SettlementConfig{}.CertificationRules()
	require.NoError(t, err)
	assert.Nil(t, empty)
}
