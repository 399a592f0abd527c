package domain

// TransactionRecord is one signature referencing a mint, in the order the
// chain returned it (most recent first).
type TransactionRecord struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime string `json:"blockTime"`               // display-formatted block time
	Unix      *int64 `json:"blockTimeUnix,omitempty"` // nil when the node has no block time
	Failed    bool   `json:"failed,omitempty"`
}

// TransferEvent is a system-program lamport transfer found in a transaction.
type TransferEvent struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

// SignatureStatus describes how a single signature contributed to a price scan.
type SignatureStatus string

// Signature outcomes.
const (
	SignaturePriced     SignatureStatus = "priced"     // attributed lamports > 0
	SignatureZero       SignatureStatus = "zero"       // resolved, nothing attributable
	SignatureUnresolved SignatureStatus = "unresolved" // node returned null
	SignatureFailed     SignatureStatus = "failed"     // transport error, counted as 0
)

// PriceSignal is the price evidence extracted from one signature.
type PriceSignal struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Purchaser string // mint authority from a mintTo instruction, if any
	Transfers []TransferEvent
	Lamports  uint64 // sum of transfers attributed to the wallet or purchaser
	Status    SignatureStatus
}
