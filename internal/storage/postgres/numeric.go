package postgres

import (
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgtype"

	"rep-protocol/internal/domain"
)

// toNumeric encodes an amount for a NUMERIC(78, 0) column. nil becomes NULL.
func toNumeric(v *uint256.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: v.ToBig(), Exp: 0, Valid: true}
}

// fromNumeric decodes a NUMERIC(78, 0) column. NULL becomes nil.
func fromNumeric(n pgtype.Numeric) (*uint256.Int, error) {
	if !n.Valid {
		return nil, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, fmt.Errorf("numeric is not a finite integer")
	}

	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		q, r := new(big.Int).QuoRem(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil), new(big.Int))
		if r.Sign() != 0 {
			return nil, fmt.Errorf("numeric has a fractional part")
		}
		v = q
	}

	out, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, fmt.Errorf("numeric out of uint256 range")
	}
	return out, nil
}

// toNanos encodes a time as unix nanoseconds. The zero time becomes NULL.
func toNanos(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ns := t.UnixNano()
	return &ns
}

func fromNanos(ns *int64) time.Time {
	if ns == nil {
		return time.Time{}
	}
	return time.Unix(0, *ns).UTC()
}

func parseAddress(s string) (domain.Address, error) {
	a, err := domain.ParseAddress(s)
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("scan address: %w", err)
	}
	return a, nil
}
