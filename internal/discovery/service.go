// Package discovery enumerates the NFTs held by a wallet and records one
// dump per mint.
package discovery

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/retry"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/storage"
)

// DefaultWorkers bounds concurrent metadata lookups.
const DefaultWorkers = 4

// ErrInvalidAddress is returned for wallet addresses that are not base58 public keys.
var ErrInvalidAddress = solana.ErrInvalidAddress

// Options configures a Service.
type Options struct {
	RPC     solana.RPCClient
	Updater *storage.Updater
	Policy  retry.Policy // Default: retry.DefaultPolicy()
	Workers int          // Default: 4
	Logger  *log.Logger
}

// Service discovers wallet NFTs and persists their dumps.
type Service struct {
	rpc     solana.RPCClient
	updater *storage.Updater
	policy  retry.Policy
	workers int
	logger  *log.Logger
}

// NewService creates a discovery service.
func NewService(opts Options) *Service {
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		rpc:     opts.RPC,
		updater: opts.Updater,
		policy:  policy,
		workers: workers,
		logger:  logger,
	}
}

// Snapshot converts a parsed token account into its domain form.
func Snapshot(acc solana.TokenAccount) domain.TokenAccountSnapshot {
	var ui float64
	if acc.UIAmount != nil {
		ui = *acc.UIAmount
	}
	return domain.TokenAccountSnapshot{
		Pubkey:   solana.CanonicalKey(acc.Pubkey),
		Owner:    solana.CanonicalKey(acc.Owner),
		Mint:     solana.CanonicalKey(acc.Mint),
		Decimals: acc.Decimals,
		Amount:   acc.Amount,
		UIAmount: ui,
	}
}

// FilterNFTs keeps the accounts holding exactly one indivisible token,
// preserving order.
func FilterNFTs(accounts []solana.TokenAccount) []domain.TokenAccountSnapshot {
	var nfts []domain.TokenAccountSnapshot
	for _, acc := range accounts {
		snap := Snapshot(acc)
		if snap.IsNFT() {
			nfts = append(nfts, snap)
		}
	}
	return nfts
}

// Discover lists the wallet's token accounts, keeps the NFTs, resolves each
// NFT's on-chain metadata and overwrites the dump of every mint. Dumps are
// returned in token-account order.
//
// A failed metadata lookup or dump write never aborts the pass: the affected
// dump carries an issue code instead. Only an invalid wallet, a failed
// token-account listing or a cancelled context are returned as errors.
func (s *Service) Discover(ctx context.Context, wallet string) ([]*domain.NftDump, error) {
	if err := solana.ValidateAddress("wallet", wallet); err != nil {
		return nil, err
	}
	wallet = solana.CanonicalKey(wallet)

	var accounts []solana.TokenAccount
	err := s.call(ctx, "getTokenAccountsByOwner", func() error {
		var err error
		accounts, err = s.rpc.GetTokenAccountsByOwner(ctx, wallet, solana.TokenProgramID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list token accounts of %s: %w", wallet, err)
	}

	nfts := FilterNFTs(accounts)
	s.logger.Printf("discovery: %d of %d token accounts of %s are nfts", len(nfts), len(accounts), wallet)

	dumps := make([]*domain.NftDump, len(nfts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, nft := range nfts {
		g.Go(func() error {
			dump, err := s.discoverOne(gctx, nft)
			if err != nil {
				return err
			}
			dumps[i] = dump
			s.logger.Printf("discovery: nft %d determined: %s", i+1, nft.Mint)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observability.RecordNFTsDiscovered(len(dumps))
	return dumps, nil
}

func (s *Service) discoverOne(ctx context.Context, nft domain.TokenAccountSnapshot) (*domain.NftDump, error) {
	found, err := s.lookupMetadata(ctx, nft.Mint)
	if err != nil {
		return nil, err
	}

	dump := &domain.NftDump{
		Account:         nft.Pubkey,
		Mint:            nft.Mint,
		MetadataAccount: found.Account,
		Metadata:        found.Metadata,
	}
	if found.Issue != "" {
		dump.AddIssue(found.Issue)
		observability.RecordDiscoveryIssue(found.Issue)
	}

	written, err := s.updater.Update(ctx, nft.Mint, func(*domain.NftDump) (*domain.NftDump, error) {
		next := *dump
		next.Issues = append([]string(nil), dump.Issues...)
		return &next, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Printf("discovery: dump write for %s failed: %v", nft.Mint, err)
		observability.RecordDumpWrite("error")
		observability.RecordDiscoveryIssue(domain.IssueDumpWriteFailed)
		dump.AddIssue(domain.IssueDumpWriteFailed)
		return dump, nil
	}
	observability.RecordDumpWrite("ok")
	return written, nil
}
