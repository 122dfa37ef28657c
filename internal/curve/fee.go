package curve

import (
	"github.com/holiman/uint256"
)

// MaxBPS is 100% in basis points.
const MaxBPS = 10000

var maxBPS = uint256.NewInt(MaxBPS)

// ValidBPS reports whether bps is a usable fee or royalty rate, i.e. in [0, 10000).
func ValidBPS(bps uint32) bool {
	return bps < MaxBPS
}

// FeeBPS returns floor(amount * bps / 10000).
func FeeBPS(amount *uint256.Int, bps uint32) *uint256.Int {
	// Cannot overflow: the 512-bit product is divided back below amount for bps <= 10000.
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(bps)), maxBPS)
	return fee
}

// SplitFee divides fee between the project and the owner. The royalty is
// taken from the fee itself, not from the traded amount.
func SplitFee(fee *uint256.Int, royaltyBPS uint32) (royalty, ownerShare *uint256.Int) {
	royalty = FeeBPS(fee, royaltyBPS)
	ownerShare = new(uint256.Int).Sub(fee, royalty)
	return royalty, ownerShare
}

// Breakdown is the result of charging the trading fee on an amount.
type Breakdown struct {
	Gross      *uint256.Int
	Fee        *uint256.Int
	Net        *uint256.Int
	Royalty    *uint256.Int
	OwnerShare *uint256.Int
}

// ApplyFee charges feeBPS on gross and splits the fee by royaltyBPS.
func ApplyFee(gross *uint256.Int, feeBPS, royaltyBPS uint32) Breakdown {
	fee := FeeBPS(gross, feeBPS)
	royalty, ownerShare := SplitFee(fee, royaltyBPS)
	return Breakdown{
		Gross:      gross.Clone(),
		Fee:        fee,
		Net:        new(uint256.Int).Sub(gross, fee),
		Royalty:    royalty,
		OwnerShare: ownerShare,
	}
}
