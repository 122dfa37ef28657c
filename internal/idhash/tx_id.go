package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"rep-protocol/internal/domain"
)

// ComputeTxID computes a deterministic journal tx_id using SHA256.
// Formula: SHA256(seq|kind|caller|timestamp_ns)
// Returns hex-encoded hash (64 characters).
func ComputeTxID(seq uint64, kind domain.TxKind, caller domain.Address, timestampNs int64) string {
	data := fmt.Sprintf("%d|%s|%s|%d",
		seq,
		string(kind),
		caller.String(),
		timestampNs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
