package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/factory"
	"rep-protocol/internal/idhash"
)

const testOwner = "4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi"

func TestParse_Defaults(t *testing.T) {
	t.Setenv("REP_OWNER", testOwner)

	cfg, err := Parse()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, uint32(25), cfg.MintingFeeBPS)
	assert.Equal(t, "0.41", cfg.CreationFee)
	assert.Equal(t, "retain", cfg.FeePolicy)
	assert.Equal(t, int32(18), cfg.Decimals)
	assert.Equal(t, uint(2), cfg.CurveExponent)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.PostgresDSN)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("REP_OWNER", testOwner)
	t.Setenv("REP_MINTING_FEE_BPS", "50")
	t.Setenv("REP_FEE_POLICY", "forward")
	t.Setenv("REP_POSTGRES_DSN", "postgres://u:p@localhost:5432/rep")
	t.Setenv("REP_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Parse()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint32(50), cfg.MintingFeeBPS)
	assert.Equal(t, "forward", cfg.FeePolicy)
	assert.Equal(t, "postgres://u:p@localhost:5432/rep", cfg.PostgresDSN)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestParse_BadValue(t *testing.T) {
	t.Setenv("REP_MINTING_FEE_BPS", "lots")

	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing owner", func(c *Config) { c.Owner = "" }},
		{"bad owner", func(c *Config) { c.Owner = "0xabc" }},
		{"fee out of range", func(c *Config) { c.MintingFeeBPS = 10000 }},
		{"unknown policy", func(c *Config) { c.FeePolicy = "burn" }},
		{"bad creation fee", func(c *Config) { c.CreationFee = "-1" }},
		{"too precise creation fee", func(c *Config) { c.CreationFee = "0.0000000000000000001" }},
		{"bad exponent", func(c *Config) { c.CurveExponent = 7 }},
		{"zero virtual supply", func(c *Config) { c.VirtualSupply = "0" }},
		{"no rate limit", func(c *Config) { c.RateLimitRPS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REP_OWNER", testOwner)
			cfg, err := Parse()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFactoryParams(t *testing.T) {
	t.Setenv("REP_OWNER", testOwner)
	t.Setenv("REP_FACTORY_SALT", "other-salt")
	t.Setenv("REP_CREATION_FEE", "1.5")

	cfg, err := Parse()
	require.NoError(t, err)

	p, err := cfg.FactoryParams()
	require.NoError(t, err)

	owner := domain.MustParseAddress(testOwner)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, idhash.DeriveFactoryAddress(owner, "other-salt"), p.Address)
	assert.Equal(t, "1500000000000000000", p.CreationFee.Dec())
	assert.Equal(t, factory.FeePolicyRetain, p.FeePolicy)
	assert.Equal(t, uint(2), p.Curve.Config().Exponent)
	assert.Equal(t, "10000000000000000", p.Curve.Config().VirtualReserve.Dec())
}

func TestLoadWith_OverrideBeforeValidate(t *testing.T) {
	t.Setenv("REP_OWNER", "")

	_, err := LoadWith(nil)
	require.Error(t, err)

	cfg, err := LoadWith(func(c *Config) {
		c.Owner = testOwner
		c.APIAddr = ":18080"
	})
	require.NoError(t, err)
	assert.Equal(t, ":18080", cfg.APIAddr)
}
