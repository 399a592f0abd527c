package solana

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key.
const PublicKeyLength = 32

// IsPublicKey reports whether s is a base58 encoded 32-byte key.
func IsPublicKey(s string) bool {
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == PublicKeyLength
}

// ErrInvalidAddress is returned for strings that are not base58 public keys.
var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress checks that value is a public key, naming field in the error.
func ValidateAddress(field, value string) error {
	if !IsPublicKey(strings.TrimSpace(value)) {
		return fmt.Errorf("%w: %s %q", ErrInvalidAddress, field, value)
	}
	return nil
}

// CanonicalKey returns the canonical base58 form of a public key so keys
// from different parts of a response compare equal as strings. Values that
// are not 32-byte keys are returned trimmed but otherwise untouched.
func CanonicalKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	decoded, err := base58.Decode(trimmed)
	if err != nil || len(decoded) != PublicKeyLength {
		return trimmed
	}
	return base58.Encode(decoded)
}

// Normalize rewrites every key embedded in the transaction into canonical
// form: account keys, program ids and instruction account lists, for both
// outer and inner instructions. Parsed info blocks are canonicalized when
// decoded through Transfer and MintTo.
func (tx *ParsedTransaction) Normalize() {
	if tx == nil {
		return
	}
	for i := range tx.Message.AccountKeys {
		tx.Message.AccountKeys[i].Pubkey = CanonicalKey(tx.Message.AccountKeys[i].Pubkey)
	}
	normalizeInstructions(tx.Message.Instructions)
	if tx.Meta != nil {
		for i := range tx.Meta.InnerInstructions {
			normalizeInstructions(tx.Meta.InnerInstructions[i].Instructions)
		}
	}
}

func normalizeInstructions(ixs []ParsedInstruction) {
	for i := range ixs {
		ixs[i].ProgramID = CanonicalKey(ixs[i].ProgramID)
		for j := range ixs[i].Accounts {
			ixs[i].Accounts[j] = CanonicalKey(ixs[i].Accounts[j])
		}
	}
}

// AllInstructions returns outer instructions followed by every inner
// instruction set in the order the node reported them.
func (tx *ParsedTransaction) AllInstructions() []ParsedInstruction {
	if tx == nil {
		return nil
	}
	all := make([]ParsedInstruction, 0, len(tx.Message.Instructions))
	all = append(all, tx.Message.Instructions...)
	if tx.Meta != nil {
		for _, set := range tx.Meta.InnerInstructions {
			all = append(all, set.Instructions...)
		}
	}
	return all
}
