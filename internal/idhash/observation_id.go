package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeObservationID computes a deterministic observation id using SHA256.
// Formula: SHA256(mint|wallet|signature)
// Returns hex-encoded hash (64 characters). The same signature scanned
// again for the same mint and wallet maps to the same id, so re-running
// inference does not grow the observation log.
func ComputeObservationID(mint, wallet, signature string) string {
	data := fmt.Sprintf("%s|%s|%s", mint, wallet, signature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
