package metadata

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-nft-lab/internal/solana"
)

// DeriveMetadataAddress derives the Token Metadata PDA for mint.
// Seeds: ["metadata", metadata_program_id, mint]
func DeriveMetadataAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("derive metadata address: invalid mint %q", mint)
	}
	programBytes, err := base58.Decode(solana.TokenMetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("derive metadata address: %w", err)
	}

	seeds := [][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}

	addr, _, err := FindProgramAddress(seeds, programBytes)
	return addr, err
}

// FindProgramAddress searches bumps from 255 down for the first hash that
// is off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID []byte) (string, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("find program address: no viable bump")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
