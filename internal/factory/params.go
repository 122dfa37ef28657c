package factory

import (
	"fmt"

	"github.com/holiman/uint256"

	"rep-protocol/internal/curve"
	"rep-protocol/internal/domain"
	"rep-protocol/internal/idhash"
)

// FeePolicy decides where creation fees end up.
type FeePolicy string

const (
	// FeePolicyRetain keeps creation fees on the factory account.
	FeePolicyRetain FeePolicy = "retain"
	// FeePolicyForward moves each creation fee on to the owner.
	FeePolicyForward FeePolicy = "forward"
)

// Defaults.
const (
	DefaultMintingFeeBPS = 25
	DefaultCreationFee   = "0.41"
	DefaultSalt          = "rep-factory"
)

// Params is the factory configuration handed to every token it creates.
type Params struct {
	Address       domain.Address // factory account; receives creation fees
	Owner         domain.Address // system owner of every token
	MintingFeeBPS uint32
	CreationFee   *uint256.Int
	FeePolicy     FeePolicy
	Curve         *curve.Curve
}

// DefaultParams returns the default configuration for owner.
func DefaultParams(owner domain.Address) Params {
	return Params{
		Address:       idhash.DeriveFactoryAddress(owner, DefaultSalt),
		Owner:         owner,
		MintingFeeBPS: DefaultMintingFeeBPS,
		CreationFee:   domain.MustParseUnits(DefaultCreationFee, domain.DefaultDecimals),
		FeePolicy:     FeePolicyRetain,
		Curve:         curve.Default(),
	}
}

// Validate checks p.
func (p Params) Validate() error {
	if p.Address.IsZero() {
		return fmt.Errorf("%w: factory address", domain.ErrInvalidAddress)
	}
	if p.Owner.IsZero() {
		return fmt.Errorf("%w: owner", domain.ErrInvalidAddress)
	}
	if !curve.ValidBPS(p.MintingFeeBPS) {
		return fmt.Errorf("minting fee %d bps out of range", p.MintingFeeBPS)
	}
	if p.CreationFee == nil {
		return fmt.Errorf("creation fee is required")
	}
	switch p.FeePolicy {
	case FeePolicyRetain, FeePolicyForward:
	default:
		return fmt.Errorf("unknown fee policy %q", p.FeePolicy)
	}
	if p.Curve == nil {
		return fmt.Errorf("curve is required")
	}
	return nil
}
