package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/pricing"
)

// Kind selects the columns a report carries.
type Kind string

// Report kinds.
const (
	KindDiscovery Kind = "discovery"
	KindPrice     Kind = "price"
)

// Report is a rendered view over discovered or priced NFTs of one wallet.
type Report struct {
	Kind        Kind      `json:"kind"`
	Wallet      string    `json:"wallet,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	Summary Summary `json:"summary"`

	// Rows keep the order of the input (token-account or store order).
	Rows []Row `json:"rows"`
}

// Summary aggregates the rows of a report.
type Summary struct {
	TotalNFTs     int             `json:"totalNfts"`
	Priced        int             `json:"priced"`
	Incomplete    int             `json:"incomplete"` // rows with issues or errors
	TotalLamports uint64          `json:"totalLamports"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Row describes one mint.
type Row struct {
	Mint              string          `json:"mint"`
	Account           string          `json:"account,omitempty"`
	MetadataAccount   string          `json:"metadataAccount,omitempty"`
	Name              string          `json:"name,omitempty"`
	Symbol            string          `json:"symbol,omitempty"`
	URI               string          `json:"uri,omitempty"`
	ProjectName       string          `json:"projectName,omitempty"`
	NftNumber         string          `json:"nftNumber,omitempty"`
	Family            string          `json:"family,omitempty"`
	PurchasedLamports uint64          `json:"purchasedLamports"`
	PurchasedPrice    decimal.Decimal `json:"purchasedPrice"`
	PurchasedDate     string          `json:"purchasedDate,omitempty"`
	PriceSignature    string          `json:"priceSignature,omitempty"`
	Transactions      int             `json:"transactions"`
	Observations      int             `json:"observations,omitempty"`
	Issues            []string        `json:"issues,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// RowFromDump describes a cached dump. Off-chain fields override on-chain
// ones when the dump carries a fetched document.
func RowFromDump(d *domain.NftDump) Row {
	row := Row{
		Mint:              d.Mint,
		Account:           d.Account,
		MetadataAccount:   d.MetadataAccount,
		URI:               d.MetadataURI(),
		PurchasedLamports: d.PurchasedLamports,
		PurchasedPrice:    domain.LamportsToSOL(d.PurchasedLamports),
		PurchasedDate:     d.PurchasedDate,
		PriceSignature:    d.PriceSignature,
		Transactions:      len(d.TransactionData),
		Issues:            d.Issues,
	}
	if d.PurchasedPrice != nil {
		row.PurchasedPrice = *d.PurchasedPrice
	}
	if d.Metadata != nil {
		row.Name = d.Metadata.Data.Name
		row.Symbol = d.Metadata.Data.Symbol
	}
	if len(d.NftMetadata) > 0 {
		if doc, err := domain.ParseOffChainMetadata(d.NftMetadata); err == nil {
			if doc.Name != "" {
				row.Name = doc.Name
			}
			if doc.Symbol != "" {
				row.Symbol = doc.Symbol
			}
			if doc.Collection != nil {
				row.Family = doc.Collection.Family
			}
		}
	}
	row.ProjectName, row.NftNumber = pricing.ParseDisplayName(row.Name)
	return row
}

// RowFromResult describes one price inference result.
func RowFromResult(r *domain.PriceResult) Row {
	return Row{
		Mint:              r.Mint,
		Name:              displayName(r.Summary),
		Symbol:            r.Summary.Symbol,
		ProjectName:       r.Summary.ProjectName,
		NftNumber:         r.Summary.NftNumber,
		Family:            r.Summary.Family,
		PurchasedLamports: r.PurchasedLamports,
		PurchasedPrice:    r.PurchasedPrice,
		PurchasedDate:     r.PurchasedDate,
		PriceSignature:    r.PriceSignature,
		Transactions:      len(r.Transactions),
		Issues:            r.Issues,
	}
}

func displayName(s domain.NftSummary) string {
	if s.NftNumber == "" {
		return s.ProjectName
	}
	return s.ProjectName + " #" + s.NftNumber
}

// NewDiscoveryReport builds a report over freshly discovered dumps.
func NewDiscoveryReport(wallet string, dumps []*domain.NftDump, now time.Time) *Report {
	rows := make([]Row, 0, len(dumps))
	for _, d := range dumps {
		rows = append(rows, RowFromDump(d))
	}
	return newReport(KindDiscovery, wallet, rows, now)
}

// NewPriceReport builds a report over a batch of price inference outcomes.
// Failed mints become rows carrying only the error.
func NewPriceReport(wallet string, outcomes []pricing.MintOutcome, now time.Time) *Report {
	rows := make([]Row, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Result == nil {
			row := Row{Mint: o.Mint}
			if o.Err != nil {
				row.Error = o.Err.Error()
			}
			rows = append(rows, row)
			continue
		}
		rows = append(rows, RowFromResult(o.Result))
	}
	return newReport(KindPrice, wallet, rows, now)
}

func newReport(kind Kind, wallet string, rows []Row, now time.Time) *Report {
	r := &Report{
		Kind:        kind,
		Wallet:      wallet,
		GeneratedAt: now.UTC(),
		Rows:        rows,
	}
	r.Summary = summarize(rows)
	return r
}

func summarize(rows []Row) Summary {
	s := Summary{TotalNFTs: len(rows)}
	for _, row := range rows {
		if row.PurchasedLamports > 0 {
			s.Priced++
			s.TotalLamports += row.PurchasedLamports
		}
		if len(row.Issues) > 0 || row.Error != "" {
			s.Incomplete++
		}
	}
	s.TotalPrice = domain.LamportsToSOL(s.TotalLamports)
	return s
}
