package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"solana-nft-lab/internal/app"
	"solana-nft-lab/internal/config"
	"solana-nft-lab/internal/reporting"
)

var (
	envFile     string
	rpcEndpoint string
	dumpBackend string
	dumpDir     string
	format      string
	outputPath  string
	workers     int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "nftscan",
	Short: "Solana NFT discovery and purchase price inference",
	Long: `nftscan lists the NFTs a Solana wallet holds, caches their on-chain metadata
as dumps and infers what the wallet paid for each one from its transaction history.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// cancels in-flight RPC work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "Dotenv file to load before the environment")
	pf.StringVar(&rpcEndpoint, "rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides SOLANA_RPC_ENDPOINT)")
	pf.StringVar(&dumpBackend, "dump-backend", "", "Dump store backend: file, memory, postgres (overrides DUMP_BACKEND)")
	pf.StringVar(&dumpDir, "dump-dir", "", "Dump directory for the file backend (overrides DUMP_DIR)")
	pf.StringVarP(&format, "format", "f", reporting.FormatJSON, "Output format: json, csv, markdown")
	pf.StringVarP(&outputPath, "output", "o", "", "Write output to this file instead of stdout")
	pf.IntVarP(&workers, "workers", "w", 0, "Concurrent lookups (overrides WORKERS)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(discoverCmd, priceCmd, reportCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if rpcEndpoint != "" {
		cfg.RPCEndpoint = rpcEndpoint
	}
	if dumpBackend != "" {
		cfg.DumpBackend = dumpBackend
	}
	if dumpDir != "" {
		cfg.DumpDir = dumpDir
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[nftscan] ", log.LstdFlags)
}

// openApp builds the services for one command invocation.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, newLogger())
}

// writeReport renders r to --output or stdout.
func writeReport(cmd *cobra.Command, r *reporting.Report) error {
	w := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := reporting.Render(w, format, r); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(r.Rows), outputPath)
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
