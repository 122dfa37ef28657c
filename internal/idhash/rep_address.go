package idhash

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"

	"rep-protocol/internal/domain"
)

// addressMarker domain-separates derived addresses from other hashes.
const addressMarker = "RepDerivedAddress"

// ErrNoOffCurveAddress is returned when no bump yields an off-curve hash.
// Practically unreachable: each bump has ~50% chance to land off-curve.
var ErrNoOffCurveAddress = errors.New("no off-curve address found")

// DeriveAddress derives a deterministic address from seeds and an owner.
// Algorithm:
//  1. Concatenate seeds, bump and owner address, append marker
//  2. SHA256 hash
//  3. Walk bump from 255 down until the hash is off the ed25519 curve
//
// Off-curve addresses have no private key, so nobody can sign for them.
// Returns the address and the bump used.
func DeriveAddress(seeds [][]byte, owner domain.Address) (domain.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 64+len(owner)+len(addressMarker))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, owner[:]...)
		data = append(data, addressMarker...)

		hash := sha256.Sum256(data)
		if !IsOnCurve(hash[:]) {
			return domain.Address(hash), uint8(bump), nil
		}
	}
	return domain.ZeroAddress, 0, ErrNoOffCurveAddress
}

// DeriveRepAddress derives the token address for (ticker, creator) under a factory.
// Pure: depends only on its inputs.
func DeriveRepAddress(factory domain.Address, ticker string, creator domain.Address) domain.Address {
	// Length prefix keeps ("ab", X) and ("a", "b"+X) apart.
	seeds := [][]byte{
		[]byte("rep"),
		{byte(len(ticker))},
		[]byte(ticker),
		creator[:],
	}
	addr, _, err := DeriveAddress(seeds, factory)
	if err != nil {
		panic(err)
	}
	return addr
}

// DeriveFactoryAddress derives the factory's own account address from its owner and a salt.
func DeriveFactoryAddress(owner domain.Address, salt string) domain.Address {
	addr, _, err := DeriveAddress([][]byte{[]byte("factory"), []byte(salt)}, owner)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsOnCurve reports whether b decodes to a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
