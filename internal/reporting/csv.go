package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

var discoveryColumns = []string{
	"mint", "account", "metadata_account", "name", "symbol", "uri", "issues",
}

var priceColumns = []string{
	"mint", "project_name", "nft_number", "symbol", "family",
	"purchased_lamports", "purchased_price", "purchased_date", "price_signature",
	"transactions", "observations", "issues", "error",
}

// RenderCSV renders report rows as CSV string. Columns depend on the report kind.
func RenderCSV(r *Report) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := priceColumns
	if r.Kind == KindDiscovery {
		header = discoveryColumns
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, row := range r.Rows {
		issues := strings.Join(row.Issues, ";")
		var record []string
		if r.Kind == KindDiscovery {
			record = []string{
				row.Mint, row.Account, row.MetadataAccount, row.Name, row.Symbol, row.URI, issues,
			}
		} else {
			record = []string{
				row.Mint,
				row.ProjectName,
				row.NftNumber,
				row.Symbol,
				row.Family,
				strconv.FormatUint(row.PurchasedLamports, 10),
				row.PurchasedPrice.String(),
				row.PurchasedDate,
				row.PriceSignature,
				strconv.Itoa(row.Transactions),
				strconv.Itoa(row.Observations),
				issues,
				row.Error,
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
