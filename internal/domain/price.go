package domain

import "github.com/shopspring/decimal"

// NftSummary is the display summary returned with a price result.
type NftSummary struct {
	Mint           string          `json:"mint"`
	PurchasedPrice decimal.Decimal `json:"purchasedPrice"`
	PurchasedDate  string          `json:"purchasedDate"`
	ProjectName    string          `json:"projectName"`
	NftNumber      string          `json:"nftNumber"`
	Symbol         string          `json:"symbol"`
	Family         string          `json:"family"`
}

// PriceResult is the outcome of one price inference pass over a mint.
type PriceResult struct {
	Mint              string              `json:"mint"`
	Wallet            string              `json:"wallet"`
	PurchasedLamports uint64              `json:"purchasedLamports"`
	PurchasedPrice    decimal.Decimal     `json:"purchasedPrice"`
	PurchasedDate     string              `json:"purchasedDate"`
	PriceSignature    string              `json:"priceSignature,omitempty"`
	Transactions      []TransactionRecord `json:"data"`
	Summary           NftSummary          `json:"summary"`
	Issues            []string            `json:"issues,omitempty"`
}

// PriceObservation is one per-signature price signal appended to the
// observation log.
type PriceObservation struct {
	ObservationID string
	Mint          string
	Wallet        string
	Signature     string
	Slot          uint64
	BlockTime     int64 // unix seconds, 0 when unknown
	Purchaser     string
	Lamports      uint64
	Status        SignatureStatus
	ObservedAt    int64 // ms
}
