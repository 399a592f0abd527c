package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// ErrInvalidDump is returned when a cached dump fails validation on read.
var ErrInvalidDump = errors.New("invalid nft dump")

// Issue codes attached to dumps and results that are incomplete.
const (
	IssueMetadataMissing     = "metadata_missing"      // no metadata account matched the mint
	IssueMetadataUndecodable = "metadata_undecodable"  // metadata account failed to decode
	IssueMetadataUnavailable = "metadata_unavailable"  // RPC failed while looking up metadata
	IssueMetadataFetchFailed = "metadata_fetch_failed" // off-chain URI unreachable
	IssueSignatureFailed     = "signature_failed"      // at least one signature could not be fetched
	IssueDumpWriteFailed     = "dump_write_failed"     // cache write failed after discovery
)

// NftDump is the cached record for one mint. It is created by discovery and
// updated by each price inference pass. Field names match the on-disk dump
// format; fields this version does not know about are kept in Extra and
// written back unchanged.
type NftDump struct {
	Account           string              `json:"account"`
	Mint              string              `json:"mint"`
	MetadataAccount   string              `json:"metadataAccount"`
	Metadata          *OnChainMetadata    `json:"metadata"`
	NftMetadata       json.RawMessage     `json:"nftMetadata,omitempty"`
	PurchasedDate     string              `json:"purchasedDate,omitempty"`
	PurchasedPrice    *decimal.Decimal    `json:"purchasedPrice,omitempty"`
	PurchasedLamports uint64              `json:"purchasedLamports,omitempty"`
	PriceSignature    string              `json:"priceSignature,omitempty"`
	TransactionData   []TransactionRecord `json:"transactionData,omitempty"`
	Issues            []string            `json:"issues,omitempty"`
	Version           int64               `json:"version"`
	UpdatedAt         int64               `json:"updatedAt,omitempty"` // ms

	Extra map[string]json.RawMessage `json:"-"`
}

var knownDumpFields = []string{
	"account", "mint", "metadataAccount", "metadata", "nftMetadata",
	"purchasedDate", "purchasedPrice", "purchasedLamports", "priceSignature",
	"transactionData", "issues", "version", "updatedAt",
}

type dumpAlias NftDump

// MarshalJSON writes the known fields and re-emits preserved unknown ones.
func (d NftDump) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(dumpAlias(d))
	if err != nil || len(d.Extra) == 0 {
		return known, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(fields)+len(d.Extra))
	for k, v := range d.Extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the known fields and keeps everything else in Extra.
// A known field whose value does not fit its type is left zero and kept
// raw in Extra, so one odd field does not make the whole dump unreadable.
func (d *NftDump) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	_, hasLamports := fields["purchasedLamports"]

	var alias dumpAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		alias = dumpAlias{}
		for _, k := range knownDumpFields {
			raw, ok := fields[k]
			if !ok {
				continue
			}
			one, _ := json.Marshal(map[string]json.RawMessage{k: raw})
			var part dumpAlias
			if json.Unmarshal(one, &part) != nil {
				continue
			}
			_ = json.Unmarshal(one, &alias)
			delete(fields, k)
		}
	} else {
		for _, k := range knownDumpFields {
			delete(fields, k)
		}
	}

	*d = NftDump(alias)
	if len(fields) > 0 {
		d.Extra = fields
	}
	if !hasLamports {
		d.adoptLegacyPrice()
	}
	return nil
}

// adoptLegacyPrice handles dumps written before purchasedLamports existed,
// which stored the lamport amount itself in purchasedPrice.
func (d *NftDump) adoptLegacyPrice() {
	p := d.PurchasedPrice
	if p == nil || !p.IsPositive() || !p.IsInteger() || p.Cmp(maxLamports) > 0 {
		return
	}
	d.PurchasedLamports = p.BigInt().Uint64()
	sol := LamportsToSOL(d.PurchasedLamports)
	d.PurchasedPrice = &sol
}

var maxLamports = decimal.NewFromUint64(math.MaxUint64)

// Validate checks a dump read back for the given mint id. A dump written
// without a mint field is adopted by its key. Transaction entries without a
// signature carry nothing usable and are dropped.
func (d *NftDump) Validate(mint string) error {
	switch {
	case d.Mint == "":
		d.Mint = mint
	case d.Mint != mint:
		return fmt.Errorf("%w: mint %s stored under key %s", ErrInvalidDump, d.Mint, mint)
	}
	d.TransactionData = slices.DeleteFunc(d.TransactionData, func(tx TransactionRecord) bool {
		return tx.Signature == ""
	})
	return nil
}

// AddIssue records an issue code once.
func (d *NftDump) AddIssue(issue string) {
	if !slices.Contains(d.Issues, issue) {
		d.Issues = append(d.Issues, issue)
	}
}

// MetadataURI returns the on-chain URI or "".
func (d *NftDump) MetadataURI() string {
	if d == nil {
		return ""
	}
	return d.Metadata.URI()
}
