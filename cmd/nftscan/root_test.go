package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/storage/file"
)

func key(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, solana.PublicKeyLength))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		format = "json"
		outputPath = ""
		dumpBackend, dumpDir, rpcEndpoint = "", "", ""
		workers = 0
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand_RendersCachedDumps(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewDumpStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), &domain.NftDump{
		Account:           key(10),
		Mint:              key(20),
		PurchasedLamports: 50_000,
		PurchasedDate:     "3/14/2022, 9:26:40 AM",
		Version:           1,
	}))

	out, err := runCLI(t,
		"report",
		"--env-file", filepath.Join(dir, "absent.env"),
		"--dump-backend", "file",
		"--dump-dir", dir,
		"--format", "csv",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "mint,project_name"))
	assert.True(t, strings.HasPrefix(lines[1], key(20)+","))
	assert.Contains(t, lines[1], "50000")
}

func TestPriceCommand_RequiresAddress(t *testing.T) {
	_, err := runCLI(t, "price", "--dump-backend", "memory", "--env-file", filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "address")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	envFile = filepath.Join(t.TempDir(), "absent.env")
	rpcEndpoint = "http://localhost:8899"
	dumpBackend = "memory"
	workers = 9
	t.Cleanup(func() {
		envFile = ".env"
		rpcEndpoint, dumpBackend = "", ""
		workers = 0
	})

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPCEndpoint)
	assert.Equal(t, "memory", cfg.DumpBackend)
	assert.Equal(t, 9, cfg.Workers)
}
