package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/pricing"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// SettlementConfig carries the money rules. Amounts are decimal strings.
type SettlementConfig struct {
	Currency             string                    `yaml:"currency"`
	PlatformFeeRate      string                    `yaml:"platform_fee_rate"`
	ApprovalThreshold    string                    `yaml:"approval_threshold"`
	MinPayout            string                    `yaml:"min_payout"`
	CertificationBonuses []CertificationBonusEntry `yaml:"certification_bonuses"`
}

type CertificationBonusEntry struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"` // percent | flat
	Value string `yaml:"value"`
}

// SettlementValues is SettlementConfig with amounts parsed.
type SettlementValues struct {
	Currency          string
	PlatformFeeRate   decimal.Decimal
	ApprovalThreshold decimal.Decimal
	MinPayout         decimal.Decimal
}

func (s *SettlementConfig) applyDefaults() {
	if s.Currency == "" {
		s.Currency = "UGX"
	}
	if s.PlatformFeeRate == "" {
		s.PlatformFeeRate = "0.03"
	}
	if s.ApprovalThreshold == "" {
		s.ApprovalThreshold = "5000000"
	}
	if s.MinPayout == "" {
		s.MinPayout = "5000"
	}
}

// Values parses the decimal settings.
func (s SettlementConfig) Values() (SettlementValues, error) {
	fee, err := decimal.NewFromString(s.PlatformFeeRate)
	if err != nil || fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return SettlementValues{}, fmt.Errorf("invalid settlement.platform_fee_rate %q", s.PlatformFeeRate)
	}
	threshold, err := decimal.NewFromString(s.ApprovalThreshold)
	if err != nil || threshold.IsNegative() {
		return SettlementValues{}, fmt.Errorf("invalid settlement.approval_threshold %q", s.ApprovalThreshold)
	}
	minPayout, err := decimal.NewFromString(s.MinPayout)
	if err != nil || minPayout.IsNegative() {
		return SettlementValues{}, fmt.Errorf("invalid settlement.min_payout %q", s.MinPayout)
	}
	return SettlementValues{
		Currency:          strings.ToUpper(s.Currency),
		PlatformFeeRate:   fee,
		ApprovalThreshold: threshold,
		MinPayout:         minPayout,
	}, nil
}

// CertificationRules converts the configured bonus table. An empty table
// yields nil so the calculator falls back to its defaults.
func (s SettlementConfig) CertificationRules() ([]pricing.CertificationRule, error) {
	rules := make([]pricing.CertificationRule, 0, len(s.CertificationBonuses))
	for _, b := range s.CertificationBonuses {
		kind := pricing.BonusKind(strings.ToLower(b.Kind))
		if kind == "" {
			kind = pricing.BonusPercent
		}
		if kind != pricing.BonusPercent && kind != pricing.BonusFlat {
			return nil, fmt.Errorf("certification bonus %q: unknown kind %q", b.Name, b.Kind)
		}
		value, err := decimal.NewFromString(b.Value)
		if err != nil || value.IsNegative() {
			return nil, fmt.Errorf("certification bonus %q: invalid value %q", b.Name, b.Value)
		}
		if b.Name == "" {
			return nil, fmt.Errorf("certification bonus with empty name")
		}
		rules = append(rules, pricing.CertificationRule{Name: b.Name, Kind: kind, Value: value})
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules, nil
}

const (
	CheckoutProviderHosted = "hosted"
	CheckoutProviderStripe = "stripe"
)

type CheckoutConfig struct {
	Provider         string        `yaml:"provider"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	APISecret        string        `yaml:"api_secret"`
	WebhookSecret    string        `yaml:"webhook_secret"`
	WebhookTolerance time.Duration `yaml:"webhook_tolerance"`
	ReturnURL        string        `yaml:"return_url"`
	CancelURL        string        `yaml:"cancel_url"`
	WebhookURL       string        `yaml:"webhook_url"`
	Timeout          time.Duration `yaml:"timeout"`
}

func (c *CheckoutConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = CheckoutProviderHosted
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type PayoutConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (p *PayoutConfig) applyDefaults() {
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
}

type EncryptionConfig struct {
	// Key is a hex-encoded 32-byte AES key.
	Key string `yaml:"key"`
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	EventsChannel string `yaml:"events_channel"`
	AlertsChannel string `yaml:"alerts_channel"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

type AlertConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}
