// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
	"rep-protocol/internal/factory"
	"rep-protocol/internal/idhash"
)

// Config is the full service configuration. Every field maps to a REP_* variable.
type Config struct {
	Development bool   `env:"DEVELOPMENT" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL"`

	// API configuration
	APIAddr        string  `env:"API_ADDR" envDefault:":8080"`
	MetricsAddr    string  `env:"METRICS_ADDR" envDefault:":9090"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// Storage configuration. Empty DSNs select in-memory stores.
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// Market configuration
	Owner         string `env:"OWNER"`
	FactorySalt   string `env:"FACTORY_SALT" envDefault:"rep-factory"`
	MintingFeeBPS uint32 `env:"MINTING_FEE_BPS" envDefault:"25"`
	CreationFee   string `env:"CREATION_FEE" envDefault:"0.41"`
	FeePolicy     string `env:"FEE_POLICY" envDefault:"retain"`
	Decimals      int32  `env:"DECIMALS" envDefault:"18"`

	// Curve configuration
	CurveExponent  uint   `env:"CURVE_EXPONENT" envDefault:"2"`
	VirtualSupply  string `env:"VIRTUAL_SUPPLY" envDefault:"1"`
	VirtualReserve string `env:"VIRTUAL_RESERVE" envDefault:"0.01"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads .env when present, parses REP_* variables and validates the result.
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith is Load with override applied before validation. CLI flags use it.
func LoadWith(override func(*Config)) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads REP_* variables without loading .env or validating.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "REP_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all required configuration fields are properly set.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return errors.New("REP_OWNER is required")
	}
	if _, err := domain.ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("invalid REP_OWNER: %w", err)
	}
	if !curve.ValidBPS(c.MintingFeeBPS) {
		return fmt.Errorf("REP_MINTING_FEE_BPS must be below %d", curve.MaxBPS)
	}
	switch factory.FeePolicy(c.FeePolicy) {
	case factory.FeePolicyRetain, factory.FeePolicyForward:
	default:
		return fmt.Errorf("REP_FEE_POLICY must be %q or %q", factory.FeePolicyRetain, factory.FeePolicyForward)
	}
	if c.Decimals < 0 || c.Decimals > 36 {
		return fmt.Errorf("REP_DECIMALS must be in [0, 36]")
	}
	for name, v := range map[string]string{
		"REP_CREATION_FEE":    c.CreationFee,
		"REP_VIRTUAL_SUPPLY":  c.VirtualSupply,
		"REP_VIRTUAL_RESERVE": c.VirtualReserve,
	} {
		if _, err := domain.ParseUnits(v, c.Decimals); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if _, err := c.CurveConfig(); err != nil {
		return err
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("REP_RATE_LIMIT_RPS and REP_RATE_LIMIT_BURST must be positive")
	}
	if c.APIAddr == "" {
		return errors.New("REP_API_ADDR is required")
	}
	return nil
}

// CurveConfig converts the curve settings to base units.
func (c *Config) CurveConfig() (curve.Config, error) {
	supply, err := domain.ParseUnits(c.VirtualSupply, c.Decimals)
	if err != nil {
		return curve.Config{}, fmt.Errorf("invalid REP_VIRTUAL_SUPPLY: %w", err)
	}
	reserve, err := domain.ParseUnits(c.VirtualReserve, c.Decimals)
	if err != nil {
		return curve.Config{}, fmt.Errorf("invalid REP_VIRTUAL_RESERVE: %w", err)
	}
	cfg := curve.Config{Exponent: c.CurveExponent, VirtualSupply: supply, VirtualReserve: reserve}
	if _, err := curve.New(cfg); err != nil {
		return curve.Config{}, err
	}
	return cfg, nil
}

// FactoryParams builds the factory configuration.
func (c *Config) FactoryParams() (factory.Params, error) {
	owner, err := domain.ParseAddress(c.Owner)
	if err != nil {
		return factory.Params{}, fmt.Errorf("invalid REP_OWNER: %w", err)
	}
	fee, err := domain.ParseUnits(c.CreationFee, c.Decimals)
	if err != nil {
		return factory.Params{}, fmt.Errorf("invalid REP_CREATION_FEE: %w", err)
	}
	curveCfg, err := c.CurveConfig()
	if err != nil {
		return factory.Params{}, err
	}
	cv, err := curve.New(curveCfg)
	if err != nil {
		return factory.Params{}, err
	}

	p := factory.DefaultParams(owner)
	if c.FactorySalt != "" {
		p.Address = idhash.DeriveFactoryAddress(owner, c.FactorySalt)
	}
	p.MintingFeeBPS = c.MintingFeeBPS
	p.CreationFee = fee
	p.FeePolicy = factory.FeePolicy(c.FeePolicy)
	p.Curve = cv
	return p, p.Validate()
}
