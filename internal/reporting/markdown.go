package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	if r.Kind == KindDiscovery {
		sb.WriteString("# NFT Discovery Report\n\n")
	} else {
		sb.WriteString("# NFT Purchase Price Report\n\n")
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Wallet != "" {
		sb.WriteString(fmt.Sprintf("Wallet: `%s`\n\n", r.Wallet))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| NFTs | %d |\n", r.Summary.TotalNFTs))
	if r.Kind == KindPrice {
		sb.WriteString(fmt.Sprintf("| Priced | %d |\n", r.Summary.Priced))
		sb.WriteString(fmt.Sprintf("| Total Price (SOL) | %s |\n", r.Summary.TotalPrice.String()))
	}
	sb.WriteString(fmt.Sprintf("| Incomplete | %d |\n", r.Summary.Incomplete))
	sb.WriteString("\n")

	// Rows
	sb.WriteString("## NFTs\n\n")
	if len(r.Rows) == 0 {
		sb.WriteString("No NFTs found.\n\n")
		return sb.String()
	}

	if r.Kind == KindDiscovery {
		sb.WriteString("| Mint | Name | Symbol | Metadata Account | Issues |\n")
		sb.WriteString("|------|------|--------|------------------|--------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				row.Mint, cell(row.Name), cell(row.Symbol), row.MetadataAccount, notes(row)))
		}
	} else {
		sb.WriteString("| Mint | Project | Number | Family | Price (SOL) | Purchased | Transactions | Issues |\n")
		sb.WriteString("|------|---------|--------|--------|-------------|-----------|--------------|--------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %s |\n",
				row.Mint, cell(row.ProjectName), cell(row.NftNumber), cell(row.Family),
				row.PurchasedPrice.String(), cell(row.PurchasedDate), row.Transactions, notes(row)))
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

// cell escapes pipes so free-form names cannot break the table.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func notes(row Row) string {
	parts := append([]string(nil), row.Issues...)
	if row.Error != "" {
		parts = append(parts, "error: "+row.Error)
	}
	return cell(strings.Join(parts, ", "))
}
