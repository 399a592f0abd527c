package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/pricing"
	"solana-nft-lab/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func pricedDump() *domain.NftDump {
	price := domain.LamportsToSOL(1_500_000_000)
	return &domain.NftDump{
		Account:         "acct-1",
		Mint:            "mint-1",
		MetadataAccount: "meta-1",
		Metadata: &domain.OnChainMetadata{
			Data: domain.MetadataData{Name: "Degen Ape #12", Symbol: "DAPE", URI: "https://arweave.net/12.json"},
		},
		NftMetadata:       json.RawMessage(`{"name":"Degen Ape #12","collection":{"family":"Degen Ape"}}`),
		PurchasedDate:     "3/1/2024, 11:00:00 AM",
		PurchasedPrice:    &price,
		PurchasedLamports: 1_500_000_000,
		PriceSignature:    "sig-sale",
		TransactionData: []domain.TransactionRecord{
			{Signature: "sig-sale"}, {Signature: "sig-mint"},
		},
	}
}

func TestRowFromDump(t *testing.T) {
	row := RowFromDump(pricedDump())

	if row.ProjectName != "Degen Ape" || row.NftNumber != "12" {
		t.Errorf("unexpected name split: %q %q", row.ProjectName, row.NftNumber)
	}
	if row.Family != "Degen Ape" {
		t.Errorf("expected family from off-chain document, got %q", row.Family)
	}
	if row.PurchasedPrice.String() != "1.5" {
		t.Errorf("expected price 1.5, got %s", row.PurchasedPrice)
	}
	if row.Transactions != 2 {
		t.Errorf("expected 2 transactions, got %d", row.Transactions)
	}
}

func TestNewPriceReport_Summary(t *testing.T) {
	outcomes := []pricing.MintOutcome{
		{Mint: "mint-1", Result: &domain.PriceResult{
			Mint:              "mint-1",
			PurchasedLamports: 2_000_000_000,
			PurchasedPrice:    domain.LamportsToSOL(2_000_000_000),
			Summary:           domain.NftSummary{ProjectName: "Okay Bear", NftNumber: "7"},
		}},
		{Mint: "mint-2", Result: &domain.PriceResult{
			Mint:   "mint-2",
			Issues: []string{domain.IssueMetadataFetchFailed},
		}},
		{Mint: "mint-3", Err: errors.New("scan signatures: rpc down")},
	}

	r := NewPriceReport("wallet-1", outcomes, fixedNow)

	if r.Summary.TotalNFTs != 3 {
		t.Errorf("expected 3 nfts, got %d", r.Summary.TotalNFTs)
	}
	if r.Summary.Priced != 1 {
		t.Errorf("expected 1 priced, got %d", r.Summary.Priced)
	}
	if r.Summary.Incomplete != 2 {
		t.Errorf("expected 2 incomplete, got %d", r.Summary.Incomplete)
	}
	if r.Summary.TotalPrice.String() != "2" {
		t.Errorf("expected total 2, got %s", r.Summary.TotalPrice)
	}
	if r.Rows[0].Name != "Okay Bear #7" {
		t.Errorf("expected display name rebuilt, got %q", r.Rows[0].Name)
	}
	if r.Rows[2].Error == "" {
		t.Error("expected error row for mint-3")
	}
}

func TestRenderCSV_QuotesFields(t *testing.T) {
	dump := pricedDump()
	dump.Metadata.Data.Name = "Ape, the first #1"
	dump.NftMetadata = nil
	r := NewDiscoveryReport("wallet-1", []*domain.NftDump{dump}, fixedNow)

	out, err := RenderCSV(r)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d records", len(records))
	}
	if records[0][0] != "mint" || len(records[0]) != len(discoveryColumns) {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][3] != "Ape, the first #1" {
		t.Errorf("name not preserved: %q", records[1][3])
	}
}

func TestRenderCSV_PriceColumns(t *testing.T) {
	r := NewDiscoveryReport("", []*domain.NftDump{pricedDump()}, fixedNow)
	r.Kind = KindPrice

	out, err := RenderCSV(r)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	if !strings.HasPrefix(out, "mint,project_name,nft_number") {
		t.Errorf("unexpected header: %s", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, ",1500000000,1.5,") {
		t.Errorf("expected lamports and price columns, got %s", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	outcomes := []pricing.MintOutcome{
		{Mint: "mint-1", Result: &domain.PriceResult{
			Mint:              "mint-1",
			PurchasedLamports: 50_000,
			PurchasedPrice:    domain.LamportsToSOL(50_000),
			Summary:           domain.NftSummary{ProjectName: "Pipe | Project"},
		}},
	}
	md := RenderMarkdown(NewPriceReport("wallet-1", outcomes, fixedNow))

	for _, want := range []string{
		"# NFT Purchase Price Report",
		"Generated: 2024-03-01T12:00:00Z",
		"Wallet: `wallet-1`",
		"| Priced | 1 |",
		`Pipe \| Project`,
		"0.00005",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(NewDiscoveryReport("wallet-1", nil, fixedNow))
	if !strings.Contains(md, "No NFTs found.") {
		t.Errorf("expected empty notice, got:\n%s", md)
	}
}

func TestRender_Formats(t *testing.T) {
	r := NewDiscoveryReport("wallet-1", []*domain.NftDump{pricedDump()}, fixedNow)

	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, r); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if decoded["kind"] != string(KindDiscovery) {
		t.Errorf("unexpected kind: %v", decoded["kind"])
	}

	for _, format := range []string{FormatCSV, FormatMarkdown} {
		buf.Reset()
		if err := Render(&buf, format, r); err != nil {
			t.Errorf("%s: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("%s: empty output", format)
		}
	}

	if err := Render(&buf, "xml", r); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	dumps := memory.NewDumpStore()
	observations := memory.NewObservationStore()

	if err := dumps.Put(ctx, pricedDump()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dumps.Put(ctx, &domain.NftDump{Mint: "mint-2", Issues: []string{domain.IssueMetadataMissing}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	err := observations.InsertBulk(ctx, []*domain.PriceObservation{
		{ObservationID: "o1", Mint: "mint-1", Signature: "sig-sale", Lamports: 1_500_000_000, Status: domain.SignaturePriced},
		{ObservationID: "o2", Mint: "mint-1", Signature: "sig-mint", Status: domain.SignatureZero},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	r, err := NewGenerator(dumps, observations).WithClock(func() time.Time { return fixedNow }).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedNow) {
		t.Errorf("expected fixed clock, got %s", r.GeneratedAt)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(r.Rows))
	}
	if r.Rows[0].Mint != "mint-1" || r.Rows[0].Observations != 2 {
		t.Errorf("unexpected first row: %+v", r.Rows[0])
	}
	if r.Summary.Priced != 1 || r.Summary.Incomplete != 1 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
}
