package main

import (
	"github.com/spf13/cobra"

	"solana-nft-lab/internal/pricing"
	"solana-nft-lab/internal/reporting"
)

var (
	priceAddress string
	priceMint    string
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Infer purchase prices for one mint or every discovered mint",
	Long: `price infers what the wallet paid for an NFT from the signatures of its mint.
Without --mint every mint in the dump cache is priced. Mints must have been
discovered first.`,
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringVarP(&priceAddress, "address", "a", "", "Wallet address (base58)")
	priceCmd.Flags().StringVarP(&priceMint, "mint", "m", "", "Price only this mint")
	priceCmd.MarkFlagRequired("address")
}

func runPrice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var outcomes []pricing.MintOutcome
	if priceMint != "" {
		result, err := a.Pricing.Infer(ctx, priceAddress, priceMint)
		if err != nil {
			return err
		}
		outcomes = []pricing.MintOutcome{{Mint: result.Mint, Result: result}}
	} else {
		outcomes, err = a.Pricing.InferAll(ctx, priceAddress)
		if err != nil {
			return err
		}
	}
	return writeReport(cmd, reporting.NewPriceReport(priceAddress, outcomes, now()))
}
