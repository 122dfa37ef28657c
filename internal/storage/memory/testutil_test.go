package memory

import (
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testAddr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	a[31] = b
	return a
}

func amt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
