package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvConfig(t *testing.T) {
	t.Setenv("SETTLEMENT_CHECKOUT_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("SETTLEMENT_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SETTLEMENT_PAYOUT_TIMEOUT", "45s")
	t.Setenv("SETTLEMENT_REDIS_DB", "2")

	cfg := NewEnvConfig("settlement")

	assert.True(t, cfg.IsSet("checkout.webhook_secret"))
	assert.Equal(t, "whsec_test", cfg.GetString("checkout.webhook_secret"))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.GetStringSlice("kafka.brokers"))
	assert.Equal(t, 45*time.Second, cfg.GetDuration("payout.timeout"))
	assert.Equal(t, 2, cfg.GetInt("redis.db"))
	assert.False(t, cfg.IsSet("stripe.secret_key"))
	assert.Nil(t, cfg.GetStringSlice("stripe.secret_key"))
}
