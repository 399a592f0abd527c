package discovery

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/metadata"
	"solana-nft-lab/internal/retry"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/solana/stub"
	"solana-nft-lab/internal/storage"
	"solana-nft-lab/internal/storage/file"
	"solana-nft-lab/internal/storage/memory"
)

func key(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, solana.PublicKeyLength))
}

func amount(v float64) *float64 { return &v }

func encodeMetadata(t *testing.T, mint, name, uri string) []byte {
	t.Helper()
	buf, err := metadata.Encode(&domain.OnChainMetadata{
		Key:             domain.MetadataKeyMetadataV1,
		UpdateAuthority: key(200),
		Mint:            mint,
		Data: domain.MetadataData{
			Name:                 name,
			Symbol:               "DAPE",
			URI:                  uri,
			SellerFeeBasisPoints: 420,
			Creators:             []domain.Creator{{Address: key(201), Verified: true, Share: 100}},
		},
		IsMutable: true,
	})
	require.NoError(t, err)
	return buf
}

func newService(t *testing.T) (*Service, *stub.RPCClient, *memory.DumpStore) {
	t.Helper()
	rpc := stub.NewRPCClient()
	store := memory.NewDumpStore()
	svc := NewService(Options{
		RPC:     rpc,
		Updater: storage.NewUpdater(store),
		Policy:  retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Workers: 2,
		Logger:  log.New(io.Discard, "", 0),
	})
	return svc, rpc, store
}

func TestDiscover_FiltersNFTs(t *testing.T) {
	svc, rpc, store := newService(t)
	ctx := context.Background()
	wallet := key(1)

	accounts := []solana.TokenAccount{
		{Pubkey: key(10), Owner: wallet, Mint: key(20), Amount: "1", Decimals: 0, UIAmount: amount(1)},
		{Pubkey: key(11), Owner: wallet, Mint: key(21), Amount: "1000000", Decimals: 6, UIAmount: amount(1)},
		{Pubkey: key(12), Owner: wallet, Mint: key(22), Amount: "1", Decimals: 0, UIAmount: amount(1)},
		{Pubkey: key(13), Owner: wallet, Mint: key(23), Amount: "2", Decimals: 0, UIAmount: amount(2)},
		{Pubkey: key(14), Owner: wallet, Mint: key(24), Amount: "1", Decimals: 0, UIAmount: amount(1)},
	}
	for _, acc := range accounts {
		rpc.AddTokenAccount(acc)
	}
	for i, mint := range []string{key(20), key(22), key(24)} {
		rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(byte(30+i)), encodeMetadata(t, mint, "Degen Ape #1", "https://arweave.net/1.json"))
	}

	dumps, err := svc.Discover(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 3)

	assert.Equal(t, key(20), dumps[0].Mint)
	assert.Equal(t, key(22), dumps[1].Mint)
	assert.Equal(t, key(24), dumps[2].Mint)
	assert.Equal(t, key(10), dumps[0].Account)
	assert.Equal(t, key(30), dumps[0].MetadataAccount)
	require.NotNil(t, dumps[0].Metadata)
	assert.Equal(t, "Degen Ape #1", dumps[0].Metadata.Data.Name)
	assert.Equal(t, "https://arweave.net/1.json", dumps[0].MetadataURI())
	assert.Empty(t, dumps[0].Issues)

	mints, err := store.ListMints(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{key(20), key(22), key(24)}, mints)

	stored, err := store.Get(ctx, key(22))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, key(31), stored.MetadataAccount)
}

func TestFilterNFTs(t *testing.T) {
	accounts := []solana.TokenAccount{
		{Mint: key(1), Decimals: 0, UIAmount: amount(1)},
		{Mint: key(2), Decimals: 0, UIAmount: nil},
		{Mint: key(3), Decimals: 0, UIAmount: amount(0)},
		{Mint: key(4), Decimals: 9, UIAmount: amount(1)},
	}
	nfts := FilterNFTs(accounts)
	require.Len(t, nfts, 1)
	assert.Equal(t, key(1), nfts[0].Mint)
}

func TestDiscover_DerivedAddressFallback(t *testing.T) {
	svc, rpc, _ := newService(t)
	wallet, mint := key(1), key(20)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: mint, Decimals: 0, UIAmount: amount(1)})

	pda, err := metadata.DeriveMetadataAddress(mint)
	require.NoError(t, err)
	rpc.AddAccount(pda, solana.TokenMetadataProgramID, encodeMetadata(t, mint, "Fallback #9", ""))

	dumps, err := svc.Discover(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	assert.Equal(t, pda, dumps[0].MetadataAccount)
	require.NotNil(t, dumps[0].Metadata)
	assert.Equal(t, "Fallback #9", dumps[0].Metadata.Data.Name)
	assert.Equal(t, 1, rpc.Calls("getProgramAccounts"))
	assert.Equal(t, 1, rpc.Calls("getAccountInfo"))
}

func TestDiscover_MissingMetadataIsRecorded(t *testing.T) {
	svc, rpc, store := newService(t)
	wallet, mint := key(1), key(20)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: mint, Decimals: 0, UIAmount: amount(1)})

	dumps, err := svc.Discover(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	assert.Nil(t, dumps[0].Metadata)
	assert.Empty(t, dumps[0].MetadataAccount)
	assert.Empty(t, dumps[0].MetadataURI())
	assert.Equal(t, []string{domain.IssueMetadataMissing}, dumps[0].Issues)

	stored, err := store.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.IssueMetadataMissing}, stored.Issues)
}

func TestDiscover_UndecodableMetadata(t *testing.T) {
	svc, rpc, _ := newService(t)
	wallet, mint := key(1), key(20)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: mint, Decimals: 0, UIAmount: amount(1)})

	mintBytes, err := base58.Decode(mint)
	require.NoError(t, err)
	garbage := append([]byte{9}, make([]byte, 32)...)
	garbage = append(garbage, mintBytes...)
	garbage = append(garbage, 0xff, 0xff)
	rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(30), garbage)

	dumps, err := svc.Discover(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	assert.Nil(t, dumps[0].Metadata)
	assert.Equal(t, key(30), dumps[0].MetadataAccount)
	assert.Equal(t, []string{domain.IssueMetadataUndecodable}, dumps[0].Issues)
}

func TestDiscover_LookupFailureDoesNotAbortSiblings(t *testing.T) {
	svc, rpc, _ := newService(t)
	wallet := key(1)
	broken, healthy := key(20), key(21)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: broken, Decimals: 0, UIAmount: amount(1)})
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(11), Owner: wallet, Mint: healthy, Decimals: 0, UIAmount: amount(1)})
	rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(31), encodeMetadata(t, healthy, "Healthy #2", ""))
	rpc.Errors["getProgramAccounts:"+broken] = &solana.TransportError{Method: "getProgramAccounts", Attempts: 5, Err: io.ErrUnexpectedEOF}

	dumps, err := svc.Discover(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 2)

	assert.Equal(t, []string{domain.IssueMetadataUnavailable}, dumps[0].Issues)
	assert.Nil(t, dumps[0].Metadata)
	assert.Empty(t, dumps[1].Issues)
	require.NotNil(t, dumps[1].Metadata)
	assert.Equal(t, "Healthy #2", dumps[1].Metadata.Data.Name)
}

func TestDiscover_OverwritesPreviousDump(t *testing.T) {
	svc, rpc, store := newService(t)
	ctx := context.Background()
	wallet, mint := key(1), key(20)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: mint, Decimals: 0, UIAmount: amount(1)})
	rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(30), encodeMetadata(t, mint, "Ape #1", ""))

	require.NoError(t, store.Put(ctx, &domain.NftDump{
		Mint:              mint,
		Account:           key(99),
		PurchasedLamports: 50_000,
		Version:           1,
	}))

	dumps, err := svc.Discover(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	stored, err := store.Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, key(10), stored.Account)
	assert.Zero(t, stored.PurchasedLamports)
	assert.Equal(t, int64(2), stored.Version)
}

func TestDiscover_ReplacesUnreadableDump(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewDumpStore(dir)
	require.NoError(t, err)
	rpc := stub.NewRPCClient()
	svc := NewService(Options{
		RPC:     rpc,
		Updater: storage.NewUpdater(store),
		Policy:  retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Workers: 2,
		Logger:  log.New(io.Discard, "", 0),
	})
	ctx := context.Background()
	wallet, truncated, mismatched := key(1), key(20), key(21)
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(10), Owner: wallet, Mint: truncated, Decimals: 0, UIAmount: amount(1)})
	rpc.AddTokenAccount(solana.TokenAccount{Pubkey: key(11), Owner: wallet, Mint: mismatched, Decimals: 0, UIAmount: amount(1)})
	rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(30), encodeMetadata(t, truncated, "Ape #1", ""))
	rpc.AddProgramAccount(solana.TokenMetadataProgramID, key(31), encodeMetadata(t, mismatched, "Ape #2", ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, truncated+".json"), []byte(`{"account": "`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, mismatched+".json"), []byte(`{"mint": "`+key(99)+`"}`), 0o644))

	for pass := 0; pass < 2; pass++ {
		dumps, err := svc.Discover(ctx, wallet)
		require.NoError(t, err)
		require.Len(t, dumps, 2)
		for _, d := range dumps {
			assert.NotContains(t, d.Issues, domain.IssueDumpWriteFailed, d.Mint)
		}
	}

	for i, mint := range []string{truncated, mismatched} {
		stored, err := store.Get(ctx, mint)
		require.NoError(t, err, mint)
		assert.Equal(t, key(byte(10+i)), stored.Account)
		assert.Equal(t, int64(2), stored.Version)
	}
}

func TestDiscover_InvalidAddress(t *testing.T) {
	svc, rpc, _ := newService(t)

	for _, wallet := range []string{"", "not base58 0OIl", base58.Encode([]byte("short"))} {
		_, err := svc.Discover(context.Background(), wallet)
		assert.ErrorIs(t, err, ErrInvalidAddress, wallet)
	}
	assert.Zero(t, rpc.TotalCalls())
}

func TestDiscover_ListFailure(t *testing.T) {
	svc, rpc, _ := newService(t)
	rpc.Errors["getTokenAccountsByOwner"] = &solana.TransportError{Method: "getTokenAccountsByOwner", Attempts: 5, Err: io.ErrUnexpectedEOF}

	_, err := svc.Discover(context.Background(), key(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, solana.ErrTransport)
	assert.Equal(t, 2, rpc.Calls("getTokenAccountsByOwner"))
}

func TestDiscover_EmptyWallet(t *testing.T) {
	svc, rpc, _ := newService(t)

	dumps, err := svc.Discover(context.Background(), key(1))
	require.NoError(t, err)
	assert.Empty(t, dumps)
	assert.Equal(t, 1, rpc.TotalCalls())
}
