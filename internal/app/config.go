package app

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration for the auditor.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DataDir string `envconfig:"LEAVECHECK_DATA_DIR" default:"data/sample"`
	OutDir  string `envconfig:"LEAVECHECK_OUT_DIR" default:"outputs"`

	// ToleranceUnits is the maximum absolute ledger-vs-snapshot difference
	// accepted before a key is risk-flagged. 0.25 units is 15 minutes when
	// balances are tracked in hours.
	ToleranceUnits decimal.Decimal `envconfig:"LEAVECHECK_TOLERANCE_UNITS" default:"0.25"`
	Currency       string          `envconfig:"LEAVECHECK_CURRENCY" default:"AUD"`

	LSLEligibilityYears float64         `envconfig:"LEAVECHECK_LSL_ELIGIBILITY_YEARS" default:"7"`
	LSLFullYears        float64         `envconfig:"LEAVECHECK_LSL_FULL_YEARS" default:"10"`
	LSLHoursPerDay      float64         `envconfig:"LEAVECHECK_LSL_HOURS_PER_DAY" default:"7.6"`
	LSLLowFloorUnits    decimal.Decimal `envconfig:"LEAVECHECK_LSL_LOW_FLOOR_UNITS" default:"20"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.ToleranceUnits.IsNegative() {
		return nil, errors.New("tolerance must not be negative")
	}
	if cfg.LSLFullYears < cfg.LSLEligibilityYears {
		return nil, errors.New("lsl full years must not be below eligibility years")
	}
	return &cfg, nil
}

// IsProduction returns true when the auditor runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
