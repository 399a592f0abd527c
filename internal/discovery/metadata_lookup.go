package discovery

import (
	"context"
	"fmt"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/metadata"
	"solana-nft-lab/internal/retry"
	"solana-nft-lab/internal/solana"
)

// metadataLookup is the outcome of resolving the metadata account of a mint.
// Issue is set whenever Metadata is nil.
type metadataLookup struct {
	Account  string
	Metadata *domain.OnChainMetadata
	Issue    string
}

// lookupMetadata finds the metadata account of mint with a memcmp scan of the
// Token Metadata program at the mint offset. When the scan finds nothing the
// derived metadata address is read directly. Only context errors are returned;
// everything else is reported through Issue.
func (s *Service) lookupMetadata(ctx context.Context, mint string) (metadataLookup, error) {
	var accounts []solana.ProgramAccount
	err := s.call(ctx, "getProgramAccounts", func() error {
		var err error
		accounts, err = s.rpc.GetProgramAccounts(ctx, solana.TokenMetadataProgramID, []solana.MemcmpFilter{
			{Offset: metadata.MintOffset, Bytes: mint},
		})
		return err
	})
	if err != nil {
		return s.unavailable(ctx, mint, err)
	}

	if len(accounts) > 0 {
		// First match wins.
		return s.decode(mint, accounts[0].Pubkey, accounts[0].Account.Data), nil
	}

	pda, err := metadata.DeriveMetadataAddress(mint)
	if err != nil {
		s.logger.Printf("discovery: derive metadata address for %s: %v", mint, err)
		return metadataLookup{Issue: domain.IssueMetadataMissing}, nil
	}

	var info *solana.AccountInfo
	err = s.call(ctx, "getAccountInfo", func() error {
		var err error
		info, err = s.rpc.GetAccountInfo(ctx, pda)
		return err
	})
	if err != nil {
		return s.unavailable(ctx, mint, err)
	}
	if info == nil || info.Owner != solana.TokenMetadataProgramID {
		return metadataLookup{Issue: domain.IssueMetadataMissing}, nil
	}
	return s.decode(mint, pda, info.Data), nil
}

func (s *Service) decode(mint, account, data string) metadataLookup {
	meta, err := metadata.DecodeBase64(data)
	if err != nil {
		s.logger.Printf("discovery: metadata %s for %s: %v", account, mint, err)
		return metadataLookup{Account: account, Issue: domain.IssueMetadataUndecodable}
	}
	if meta.Mint != mint {
		err := &metadata.DecodeError{Field: "mint", Offset: metadata.MintOffset, Reason: fmt.Sprintf("account describes %s", meta.Mint)}
		s.logger.Printf("discovery: metadata %s for %s: %v", account, mint, err)
		return metadataLookup{Account: account, Issue: domain.IssueMetadataUndecodable}
	}
	return metadataLookup{Account: account, Metadata: meta}
}

func (s *Service) unavailable(ctx context.Context, mint string, err error) (metadataLookup, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return metadataLookup{}, ctxErr
	}
	s.logger.Printf("discovery: metadata lookup for %s failed: %v", mint, err)
	return metadataLookup{Issue: domain.IssueMetadataUnavailable}, nil
}

// call runs one RPC under the service retry policy. Errors the chain client
// marks as final are not retried.
func (s *Service) call(ctx context.Context, method string, fn func() error) error {
	_, err := retry.Do(ctx, s.policy, func(int) error {
		err := fn()
		if err == nil || solana.IsRetryable(err) {
			return err
		}
		return retry.Permanent(err)
	}, func(attempt int, err error, next time.Duration) {
		s.logger.Printf("discovery: %s attempt %d failed, retrying in %s: %v", method, attempt, next, err)
	})
	return err
}
