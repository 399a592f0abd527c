package solana

import "context"

// Well-known program IDs.
const (
	SystemProgramID        = "11111111111111111111111111111111"
	TokenProgramID         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// RPCClient defines the Solana RPC calls used for NFT discovery and pricing.
type RPCClient interface {
	// GetTokenAccountsByOwner lists parsed token accounts owned by a wallet for one token program.
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)

	// GetProgramAccounts lists accounts of a program matching all memcmp filters.
	GetProgramAccounts(ctx context.Context, programID string, filters []MemcmpFilter) ([]ProgramAccount, error)

	// GetAccountInfo retrieves a single account. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetSignaturesForAddress retrieves signatures for an address, most recent first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetParsedTransaction retrieves a jsonParsed transaction. Returns nil if the node has no record of it.
	GetParsedTransaction(ctx context.Context, signature string, commitment Commitment) (*ParsedTransaction, error)
}
