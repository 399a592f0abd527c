package main

import (
	"github.com/spf13/cobra"

	"solana-nft-lab/internal/reporting"
)

var discoverAddress string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the NFTs held by a wallet and refresh their dumps",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverAddress, "address", "a", "", "Wallet address (base58)")
	discoverCmd.MarkFlagRequired("address")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dumps, err := a.Discovery.Discover(ctx, discoverAddress)
	if err != nil {
		return err
	}
	return writeReport(cmd, reporting.NewDiscoveryReport(discoverAddress, dumps, now()))
}
