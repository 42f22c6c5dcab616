package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"einvoice/internal/logger"
	"einvoice/internal/zatca"
)

type Config struct {
	// Codec Configuration
	SeedHash        string
	StandardVATRate string
	TaxCategoryMode string
	Strict          bool
	DefaultCurrency string

	// Ledger Configuration
	LedgerDSN string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	strict, err := strconv.ParseBool(getEnv("ZATCA_STRICT", "false"))
	if err != nil {
		return nil, fmt.Errorf("ZATCA_STRICT must be a boolean: %w", err)
	}

	config := &Config{
		SeedHash:        getEnv("ZATCA_SEED_HASH", zatca.DefaultSeedHash),
		StandardVATRate: getEnv("ZATCA_STANDARD_VAT_RATE", "15"),
		TaxCategoryMode: getEnv("ZATCA_TAX_CATEGORY_MODE", string(zatca.TaxCategoryFixed)),
		Strict:          strict,
		DefaultCurrency: getEnv("ZATCA_DEFAULT_CURRENCY", "SAR"),
		LedgerDSN:       getEnv("LEDGER_DSN", "einvoice-ledger.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:   getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:       getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.SeedHash == "" {
		return fmt.Errorf("ZATCA_SEED_HASH must not be empty")
	}
	rate, err := decimal.NewFromString(c.StandardVATRate)
	if err != nil {
		return fmt.Errorf("ZATCA_STANDARD_VAT_RATE must be a number: %w", err)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("ZATCA_STANDARD_VAT_RATE must be positive, got %s", c.StandardVATRate)
	}
	switch zatca.TaxCategoryMode(c.TaxCategoryMode) {
	case zatca.TaxCategoryFixed, zatca.TaxCategoryPerRate:
	default:
		return fmt.Errorf("ZATCA_TAX_CATEGORY_MODE must be %q or %q, got %q",
			zatca.TaxCategoryFixed, zatca.TaxCategoryPerRate, c.TaxCategoryMode)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("ZATCA_DEFAULT_CURRENCY must be an ISO 4217 code, got %q", c.DefaultCurrency)
	}
	if c.LedgerDSN == "" {
		return fmt.Errorf("LEDGER_DSN must not be empty")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetBuilderOptions returns the codec options. Call only on a validated config.
func (c *Config) GetBuilderOptions() zatca.Options {
	return zatca.Options{
		StandardRate:    decimal.RequireFromString(c.StandardVATRate),
		TaxCategoryMode: zatca.TaxCategoryMode(c.TaxCategoryMode),
		Strict:          c.Strict,
		DefaultCurrency: c.DefaultCurrency,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
