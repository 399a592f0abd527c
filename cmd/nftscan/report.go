package main

import (
	"github.com/spf13/cobra"

	"solana-nft-lab/internal/reporting"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render every cached dump without touching the chain",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := reporting.NewGenerator(a.Dumps, a.Observations).Generate(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd, r)
}
