package solana

import (
	"bytes"
	"encoding/json"
)

// Commitment is the RPC commitment level.
type Commitment string

// Commitment levels.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before     string     // Start searching backwards from this signature
	Until      string     // Search until this signature
	Limit      int        // Maximum number of signatures to return
	Commitment Commitment // Defaults to the client commitment
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ProgramAccount is one entry returned by getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// MemcmpFilter matches account data at Offset against base58 Bytes.
type MemcmpFilter struct {
	Offset int
	Bytes  string
}

// TokenAccount is a jsonParsed SPL token account.
type TokenAccount struct {
	Pubkey   string
	Owner    string
	Mint     string
	Amount   string
	Decimals uint8
	UIAmount *float64 // nil when the node reports null
}

// ParsedTransaction is a jsonParsed transaction.
type ParsedTransaction struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Meta      *ParsedTransactionMeta
	Message   ParsedMessage
}

// ParsedTransactionMeta holds execution metadata.
type ParsedTransactionMeta struct {
	Err               interface{}           `json:"err"`
	Fee               uint64                `json:"fee"`
	InnerInstructions []InnerInstructionSet `json:"innerInstructions"`
	LogMessages       []string              `json:"logMessages"`
}

// InnerInstructionSet groups instructions executed by the outer instruction at Index.
type InnerInstructionSet struct {
	Index        int                 `json:"index"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// ParsedMessage is the jsonParsed transaction message.
type ParsedMessage struct {
	AccountKeys  []AccountKey        `json:"accountKeys"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// AccountKey is an account referenced by a message.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source,omitempty"`
}

// UnmarshalJSON accepts both the object form and the legacy bare string form.
func (k *AccountKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = AccountKey{Pubkey: s}
		return nil
	}
	type plain AccountKey
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*k = AccountKey(p)
	return nil
}

// ParsedInstruction is an instruction in jsonParsed form. Instructions of
// programs the node cannot parse carry Accounts and Data instead of Parsed.
type ParsedInstruction struct {
	Program     string             `json:"program,omitempty"`
	ProgramID   string             `json:"programId"`
	Accounts    []string           `json:"accounts,omitempty"`
	Data        string             `json:"data,omitempty"`
	Parsed      *InstructionParsed `json:"parsed,omitempty"`
	StackHeight *int               `json:"stackHeight,omitempty"`
}

// InstructionParsed is the parsed body of an instruction.
type InstructionParsed struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

// UnmarshalJSON tolerates programs (memo, for one) whose parsed body is a bare string.
func (p *InstructionParsed) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*p = InstructionParsed{Info: append(json.RawMessage(nil), trimmed...)}
		return nil
	}
	type plain InstructionParsed
	var v plain
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*p = InstructionParsed(v)
	return nil
}

// TransferInfo is the info block of a system transfer.
type TransferInfo struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

// MintToInfo is the info block of an spl-token mintTo.
type MintToInfo struct {
	Mint                  string `json:"mint"`
	Account               string `json:"account"`
	MintAuthority         string `json:"mintAuthority"`
	MultisigMintAuthority string `json:"multisigMintAuthority"`
}

// IsSystemTransfer reports whether the instruction is a parsed system transfer.
func (ix ParsedInstruction) IsSystemTransfer() bool {
	if ix.Parsed == nil || ix.Parsed.Type != "transfer" {
		return false
	}
	return ix.Program == "system" || ix.ProgramID == SystemProgramID
}

// IsMintTo reports whether the instruction is a parsed spl-token mintTo.
func (ix ParsedInstruction) IsMintTo() bool {
	if ix.Parsed == nil || ix.Parsed.Type != "mintTo" {
		return false
	}
	return ix.Program == "spl-token" || ix.ProgramID == TokenProgramID
}

// Transfer decodes the transfer info with canonical keys.
func (ix ParsedInstruction) Transfer() (TransferInfo, bool) {
	if !ix.IsSystemTransfer() {
		return TransferInfo{}, false
	}
	var info TransferInfo
	if err := json.Unmarshal(ix.Parsed.Info, &info); err != nil {
		return TransferInfo{}, false
	}
	info.Source = CanonicalKey(info.Source)
	info.Destination = CanonicalKey(info.Destination)
	return info, true
}

// MintTo decodes the mintTo info with canonical keys. The multisig
// authority stands in when there is no single mint authority.
func (ix ParsedInstruction) MintTo() (MintToInfo, bool) {
	if !ix.IsMintTo() {
		return MintToInfo{}, false
	}
	var info MintToInfo
	if err := json.Unmarshal(ix.Parsed.Info, &info); err != nil {
		return MintToInfo{}, false
	}
	if info.MintAuthority == "" {
		info.MintAuthority = info.MultisigMintAuthority
	}
	info.Mint = CanonicalKey(info.Mint)
	info.Account = CanonicalKey(info.Account)
	info.MintAuthority = CanonicalKey(info.MintAuthority)
	return info, true
}
