package domain

// TokenAccountSnapshot is a parsed SPL token account as listed for an owner.
// Snapshots are transient and fetched per request.
type TokenAccountSnapshot struct {
	Pubkey   string  // token account address
	Owner    string  // wallet address
	Mint     string  // mint address
	Decimals uint8   // mint decimals
	Amount   string  // raw amount as reported by the node
	UIAmount float64 // amount adjusted for decimals
}

// IsNFT reports whether the account holds exactly one indivisible token.
func (a TokenAccountSnapshot) IsNFT() bool {
	return a.Decimals == 0 && a.UIAmount == 1
}
