package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/logger"
)

type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        logger.Config    `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Settlement SettlementConfig `yaml:"settlement"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Payout     PayoutConfig     `yaml:"payout"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Alerts     AlertConfig      `yaml:"alerts"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default ./configs/settlement.yaml),
// fills defaults and overlays secrets from SETTLEMENT_* environment variables.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/settlement.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML and applies defaults, env overrides and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "settlement"
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = 8080
	}
	if c.Server.GRPC.Port == 0 {
		c.Server.GRPC.Port = 9090
	}
	c.Settlement.applyDefaults()
	c.Checkout.applyDefaults()
	c.Payout.applyDefaults()
	if c.Redis.EventsChannel == "" {
		c.Redis.EventsChannel = "settlement.events"
	}
	if c.Redis.AlertsChannel == "" {
		c.Redis.AlertsChannel = "settlement.alerts"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "settlement-events"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = c.Service.Name
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Settlement.Values(); err != nil {
		return err
	}
	if _, err := c.Settlement.CertificationRules(); err != nil {
		return err
	}
	switch c.Checkout.Provider {
	case CheckoutProviderHosted, CheckoutProviderStripe:
	default:
		return fmt.Errorf("unsupported checkout provider %q", c.Checkout.Provider)
	}
	return nil
}
