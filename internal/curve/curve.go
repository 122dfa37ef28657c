// Package curve implements the constant-reserve-ratio bonding curve and the
// basis-point fee arithmetic shared by mint and burn.
package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

// Default genesis parameters.
const (
	DefaultExponent = 2
)

var (
	// DefaultVirtualSupply is one whole token.
	DefaultVirtualSupply = uint256.NewInt(1_000_000_000_000_000_000)
	// DefaultVirtualReserve is 0.01 of the backing currency.
	DefaultVirtualReserve = uint256.NewInt(10_000_000_000_000_000)
)

// ErrInvalidConfig is returned by New for unusable genesis parameters.
var ErrInvalidConfig = errors.New("invalid curve config")

// Config holds the genesis parameters of a curve.
type Config struct {
	// Exponent n gives a reserve ratio of 1/n. Supported: 1, 2, 3.
	Exponent uint
	// VirtualSupply and VirtualReserve offset the real balances so the
	// first purchase has a finite price.
	VirtualSupply  *uint256.Int
	VirtualReserve *uint256.Int
}

// DefaultConfig returns the default genesis parameters.
func DefaultConfig() Config {
	return Config{
		Exponent:       DefaultExponent,
		VirtualSupply:  DefaultVirtualSupply.Clone(),
		VirtualReserve: DefaultVirtualReserve.Clone(),
	}
}

// Curve prices purchases and sales along R' = k * S'^n where
// S' = supply + VirtualSupply and R' = reserve + VirtualReserve.
// A Curve is immutable and safe for concurrent use.
type Curve struct {
	n  uint
	vs *big.Int
	vr *big.Int
}

// New validates cfg and builds a Curve.
func New(cfg Config) (*Curve, error) {
	if cfg.Exponent < 1 || cfg.Exponent > 3 {
		return nil, fmt.Errorf("%w: exponent %d not in [1,3]", ErrInvalidConfig, cfg.Exponent)
	}
	if cfg.VirtualSupply == nil || cfg.VirtualSupply.IsZero() {
		return nil, fmt.Errorf("%w: virtual supply must be positive", ErrInvalidConfig)
	}
	if cfg.VirtualReserve == nil || cfg.VirtualReserve.IsZero() {
		return nil, fmt.Errorf("%w: virtual reserve must be positive", ErrInvalidConfig)
	}
	return &Curve{
		n:  cfg.Exponent,
		vs: cfg.VirtualSupply.ToBig(),
		vr: cfg.VirtualReserve.ToBig(),
	}, nil
}

// Default returns a curve with DefaultConfig.
func Default() *Curve {
	c, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}

// Config returns the genesis parameters of c.
func (c *Curve) Config() Config {
	vs, _ := uint256.FromBig(c.vs)
	vr, _ := uint256.FromBig(c.vr)
	return Config{Exponent: c.n, VirtualSupply: vs, VirtualReserve: vr}
}

// PurchaseReturn returns the tokens minted for a net deposit:
//
//	floor(root_n(S'^n * (R'+d) / R')) - S'
func (c *Curve) PurchaseReturn(supply, reserve, deposit *uint256.Int) (*uint256.Int, error) {
	if deposit.IsZero() {
		return new(uint256.Int), nil
	}
	s := new(big.Int).Add(supply.ToBig(), c.vs)
	r := new(big.Int).Add(reserve.ToBig(), c.vr)

	x := c.pow(s)
	x.Mul(x, new(big.Int).Add(r, deposit.ToBig()))
	x.Quo(x, r)

	out := iroot(x, c.n)
	out.Sub(out, s)
	return toUint256(out)
}

// SaleReturn returns the gross currency released by burning amount tokens:
//
//	R' - ceil(R' * (S'-a)^n / S'^n), capped at the real reserve.
//
// Rounding favours the reserve: a purchase immediately sold back never
// returns more than was deposited.
func (c *Curve) SaleReturn(supply, reserve, amount *uint256.Int) (*uint256.Int, error) {
	if amount.Gt(supply) {
		return nil, fmt.Errorf("%w: sell %s of %s", domain.ErrInsufficientSupply, amount.Dec(), supply.Dec())
	}
	if amount.IsZero() {
		return new(uint256.Int), nil
	}
	s := new(big.Int).Add(supply.ToBig(), c.vs)
	r := new(big.Int).Add(reserve.ToBig(), c.vr)

	num := c.pow(new(big.Int).Sub(s, amount.ToBig()))
	num.Mul(num, r)
	newR := ceilDiv(num, c.pow(s))

	gross := new(big.Int).Sub(r, newR)
	if gross.Cmp(reserve.ToBig()) > 0 {
		gross = reserve.ToBig()
	}
	return toUint256(gross)
}

func (c *Curve) pow(x *big.Int) *big.Int {
	return new(big.Int).Exp(x, big.NewInt(int64(c.n)), nil)
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// iroot returns floor(x^(1/n)) for x >= 0.
func iroot(x *big.Int, n uint) *big.Int {
	switch {
	case x.Sign() == 0:
		return new(big.Int)
	case n == 1:
		return new(big.Int).Set(x)
	case n == 2:
		return new(big.Int).Sqrt(x)
	}

	// Newton iteration from an overestimate decreases monotonically to the floor root.
	bits := (x.BitLen() + int(n) - 1) / int(n)
	r := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	nb := big.NewInt(int64(n))
	nm1 := big.NewInt(int64(n - 1))
	for {
		next := new(big.Int).Quo(x, new(big.Int).Exp(r, nm1, nil))
		next.Add(next, new(big.Int).Mul(nm1, r))
		next.Quo(next, nb)
		if next.Cmp(r) >= 0 {
			return r
		}
		r = next
	}
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative result", domain.ErrOverflow)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, domain.ErrOverflow
	}
	return out, nil
}
