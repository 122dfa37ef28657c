package idhash

import (
	"testing"

	"rep-protocol/internal/domain"
)

func testAddr(b byte) domain.Address {
	var a domain.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestDeriveRepAddress_Deterministic(t *testing.T) {
	factory := testAddr(1)
	creator := testAddr(2)

	a1 := DeriveRepAddress(factory, "FAT-REP", creator)
	a2 := DeriveRepAddress(factory, "FAT-REP", creator)

	if a1 != a2 {
		t.Errorf("DeriveRepAddress not deterministic: %s != %s", a1, a2)
	}
	if a1.IsZero() {
		t.Error("DeriveRepAddress returned zero address")
	}
}

func TestDeriveRepAddress_OffCurve(t *testing.T) {
	factory := testAddr(1)
	for _, ticker := range []string{"A", "FAT-REP", "LONGER-TICKER-NAME", "x"} {
		addr := DeriveRepAddress(factory, ticker, testAddr(9))
		if IsOnCurve(addr[:]) {
			t.Errorf("address for %q is on curve", ticker)
		}
	}
}

func TestDeriveRepAddress_DistinctInputs(t *testing.T) {
	factory := testAddr(1)
	creatorA := testAddr(2)
	creatorB := testAddr(3)

	base := DeriveRepAddress(factory, "FAT-REP", creatorA)

	tests := []struct {
		name string
		got  domain.Address
	}{
		{"different creator", DeriveRepAddress(factory, "FAT-REP", creatorB)},
		{"different ticker", DeriveRepAddress(factory, "FAT-REQ", creatorA)},
		{"different factory", DeriveRepAddress(testAddr(4), "FAT-REP", creatorA)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == base {
				t.Errorf("expected different address, got %s", tt.got)
			}
		})
	}
}

func TestDeriveAddress_ReturnsBump(t *testing.T) {
	owner := testAddr(7)
	seeds := [][]byte{[]byte("seed")}

	addr, bump, err := DeriveAddress(seeds, owner)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}

	again, bump2, _ := DeriveAddress(seeds, owner)
	if addr != again || bump != bump2 {
		t.Errorf("non-deterministic result: (%s,%d) vs (%s,%d)", addr, bump, again, bump2)
	}
}

func TestDeriveFactoryAddress(t *testing.T) {
	owner := testAddr(5)
	a := DeriveFactoryAddress(owner, "main")
	b := DeriveFactoryAddress(owner, "test")

	if a == b {
		t.Error("different salts produced the same factory address")
	}
	if a != DeriveFactoryAddress(owner, "main") {
		t.Error("DeriveFactoryAddress not deterministic")
	}
}

func TestIsOnCurve_WrongLength(t *testing.T) {
	if IsOnCurve([]byte{1, 2, 3}) {
		t.Error("short input reported on curve")
	}
}
