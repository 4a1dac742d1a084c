package config

import (
	pkgconfig "github.com/qraft-Inc/coffeetrace-sub002/pkg/config"
)

const envPrefix = "settlement"

// applyEnvOverrides replaces secrets and deployment-specific values from the
// environment so they never have to live in the YAML file.
func (c *Config) applyEnvOverrides() {
	c.overlay(pkgconfig.NewEnvConfig(envPrefix))
}

func (c *Config) overlay(env pkgconfig.Config) {
	strs := map[string]*string{
		"database.host":                 &c.Database.Host,
		"database.password":             &c.Database.Password,
		"auth.jwt_secret":               &c.Auth.JWTSecret,
		"checkout.provider":             &c.Checkout.Provider,
		"checkout.base_url":             &c.Checkout.BaseURL,
		"checkout.api_key":              &c.Checkout.APIKey,
		"checkout.api_secret":           &c.Checkout.APISecret,
		"checkout.webhook_secret":       &c.Checkout.WebhookSecret,
		"stripe.secret_key":             &c.Stripe.SecretKey,
		"stripe.webhook_secret":         &c.Stripe.WebhookSecret,
		"payout.base_url":               &c.Payout.BaseURL,
		"payout.api_key":                &c.Payout.APIKey,
		"payout.api_secret":             &c.Payout.APISecret,
		"encryption.key":                &c.Encryption.Key,
		"redis.addr":                    &c.Redis.Addr,
		"redis.password":                &c.Redis.Password,
		"alerts.password":               &c.Alerts.Password,
		"settlement.min_payout":         &c.Settlement.MinPayout,
		"settlement.platform_fee_rate":  &c.Settlement.PlatformFeeRate,
		"settlement.approval_threshold": &c.Settlement.ApprovalThreshold,
	}
	for key, dst := range strs {
		if env.IsSet(key) {
			*dst = env.GetString(key)
		}
	}

	if env.IsSet("database.port") {
		c.Database.Port = env.GetInt("database.port")
	}
	if env.IsSet("payout.timeout") {
		c.Payout.Timeout = env.GetDuration("payout.timeout")
	}
	if env.IsSet("kafka.brokers") {
		c.Kafka.Brokers = env.GetStringSlice("kafka.brokers")
	}
}
