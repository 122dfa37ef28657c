package curve

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-protocol/internal/domain"
)

func u(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

func mustCurve(t *testing.T, n uint) *Curve {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Exponent = n
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"exponent zero", Config{Exponent: 0, VirtualSupply: DefaultVirtualSupply, VirtualReserve: DefaultVirtualReserve}},
		{"exponent four", Config{Exponent: 4, VirtualSupply: DefaultVirtualSupply, VirtualReserve: DefaultVirtualReserve}},
		{"nil supply", Config{Exponent: 2, VirtualReserve: DefaultVirtualReserve}},
		{"zero reserve", Config{Exponent: 2, VirtualSupply: DefaultVirtualSupply, VirtualReserve: new(uint256.Int)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestPurchaseReturn_ExactValues(t *testing.T) {
	zero := new(uint256.Int)

	// With S'=1e18 and R'=1e16 the deposits below land exactly on 2*S'.
	tests := []struct {
		n       uint
		deposit string
	}{
		{1, "10000000000000000"},
		{2, "30000000000000000"},
		{3, "70000000000000000"},
	}
	for _, tt := range tests {
		c := mustCurve(t, tt.n)
		out, err := c.PurchaseReturn(zero, zero, u(tt.deposit))
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", out.Dec(), "n=%d", tt.n)
	}
}

func TestSaleReturn_ExactInverse(t *testing.T) {
	c := mustCurve(t, 2)

	gross, err := c.SaleReturn(u("1000000000000000000"), u("30000000000000000"), u("1000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "30000000000000000", gross.Dec())
}

func TestPurchaseReturn_ZeroDeposit(t *testing.T) {
	out, err := Default().PurchaseReturn(u("5"), u("5"), new(uint256.Int))
	require.NoError(t, err)
	assert.True(t, out.IsZero())
}

func TestPurchaseReturn_Monotonic(t *testing.T) {
	c := Default()
	supply := u("62000000000000000000")
	reserve := u("39000000000000000000")

	prev := new(uint256.Int)
	for _, d := range []string{"1000", "1000000000", "1000000000000000", "1000000000000000000", "40000000000000000000"} {
		out, err := c.PurchaseReturn(supply, reserve, u(d))
		require.NoError(t, err)
		assert.True(t, out.Gt(prev), "deposit %s gave %s, previous %s", d, out.Dec(), prev.Dec())
		prev = out
	}
}

func TestRoundTrip_NeverReturnsMoreThanDeposited(t *testing.T) {
	for _, n := range []uint{1, 2, 3} {
		c := mustCurve(t, n)
		states := []struct{ supply, reserve string }{
			{"0", "0"},
			{"62170000000000000000", "39900000000000000000"},
			{"1000", "1"},
		}
		deposits := []string{"1", "999", "123456789012345678", "40000000000000000000"}

		for _, st := range states {
			for _, d := range deposits {
				supply, reserve, dep := u(st.supply), u(st.reserve), u(d)

				tokens, err := c.PurchaseReturn(supply, reserve, dep)
				require.NoError(t, err)

				newSupply := new(uint256.Int).Add(supply, tokens)
				newReserve := new(uint256.Int).Add(reserve, dep)
				gross, err := c.SaleReturn(newSupply, newReserve, tokens)
				require.NoError(t, err)

				assert.False(t, gross.Gt(dep), "n=%d state=%v deposit=%s: gross %s > deposit", n, st, d, gross.Dec())
			}
		}
	}
}

func TestSaleReturn_ExceedsSupply(t *testing.T) {
	_, err := Default().SaleReturn(u("10"), u("10"), u("11"))
	assert.ErrorIs(t, err, domain.ErrInsufficientSupply)
}

func TestSaleReturn_CappedAtReserve(t *testing.T) {
	c := Default()
	// Supply without matching reserve: the curve would release more than is held.
	gross, err := c.SaleReturn(u("1000000000000000000000"), u("5"), u("1000000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "5", gross.Dec())
}

func TestSaleReturn_SellAllFromGenesisPath(t *testing.T) {
	c := Default()
	zero := new(uint256.Int)
	dep := u("39900000000000000000")

	tokens, err := c.PurchaseReturn(zero, zero, dep)
	require.NoError(t, err)

	gross, err := c.SaleReturn(tokens, dep, tokens)
	require.NoError(t, err)
	assert.False(t, gross.Gt(dep))

	// Rounding loss stays negligible.
	loss := new(uint256.Int).Sub(dep, gross)
	assert.True(t, loss.Lt(u("1000000000000")), "loss %s", loss.Dec())
}

func TestIroot(t *testing.T) {
	values := []string{"0", "1", "7", "8", "9", "26", "27", "28", "1000000000000000000000000000000000000000000000000000001"}
	for _, n := range []uint{1, 2, 3} {
		for _, v := range values {
			x, _ := new(big.Int).SetString(v, 10)
			r := iroot(x, n)

			lo := new(big.Int).Exp(r, big.NewInt(int64(n)), nil)
			hi := new(big.Int).Exp(new(big.Int).Add(r, big.NewInt(1)), big.NewInt(int64(n)), nil)
			assert.True(t, lo.Cmp(x) <= 0, "n=%d x=%s r=%s", n, v, r)
			assert.True(t, hi.Cmp(x) > 0, "n=%d x=%s r=%s", n, v, r)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	c := Default()
	cfg := c.Config()
	assert.Equal(t, uint(DefaultExponent), cfg.Exponent)
	assert.True(t, cfg.VirtualSupply.Eq(DefaultVirtualSupply))
	assert.True(t, cfg.VirtualReserve.Eq(DefaultVirtualReserve))
}
