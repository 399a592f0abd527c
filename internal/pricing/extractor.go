// Package pricing infers the purchase price of an NFT from the recent
// transaction history of its mint.
//
// Every signature in the scanned window yields a price signal: the sum of
// system transfers that are whole multiples of TransferUnit and that were
// paid by the wallet or by the purchaser (the mint authority of an spl-token
// mintTo in the same transaction). The purchase price is the largest signal
// in the window.
package pricing

import (
	"strings"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/solana"
)

// TransferUnit filters out rent and fee transfers. Only lamport amounts that
// are exact multiples of it are price candidates.
const TransferUnit = 10_000

// CollectTransfers returns every qualifying system transfer in tx, outer
// instructions first, then inner ones, regardless of direction.
func CollectTransfers(tx *solana.ParsedTransaction) []domain.TransferEvent {
	var events []domain.TransferEvent
	for _, ix := range tx.AllInstructions() {
		info, ok := ix.Transfer()
		if !ok || info.Lamports%TransferUnit != 0 {
			continue
		}
		events = append(events, domain.TransferEvent{
			Source:      info.Source,
			Destination: info.Destination,
			Lamports:    info.Lamports,
		})
	}
	return events
}

// FindPurchaser returns the mint authority of the first spl-token mintTo
// in tx, or "" when there is none.
func FindPurchaser(tx *solana.ParsedTransaction) string {
	for _, ix := range tx.AllInstructions() {
		if info, ok := ix.MintTo(); ok && info.MintAuthority != "" {
			return info.MintAuthority
		}
	}
	return ""
}

// AttributedLamports sums the transfers paid by wallet or purchaser.
// An empty purchaser never matches.
func AttributedLamports(transfers []domain.TransferEvent, wallet, purchaser string) uint64 {
	var total uint64
	for _, t := range transfers {
		if t.Source == "" {
			continue
		}
		if t.Source == wallet || (purchaser != "" && t.Source == purchaser) {
			total += t.Lamports
		}
	}
	return total
}

// ExtractSignal computes the price signal of one resolved transaction.
func ExtractSignal(tx *solana.ParsedTransaction, wallet string) domain.PriceSignal {
	transfers := CollectTransfers(tx)
	purchaser := FindPurchaser(tx)

	signal := domain.PriceSignal{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
		Purchaser: purchaser,
		Transfers: transfers,
		Lamports:  AttributedLamports(transfers, solana.CanonicalKey(wallet), purchaser),
	}
	if signal.Lamports > 0 {
		signal.Status = domain.SignaturePriced
	} else {
		signal.Status = domain.SignatureZero
	}
	return signal
}

// MaxSignal returns the signal with the most lamports. On ties the earliest
// signal in the slice wins. ok is false for an empty slice.
func MaxSignal(signals []domain.PriceSignal) (best domain.PriceSignal, ok bool) {
	for i, s := range signals {
		if i == 0 || s.Lamports > best.Lamports {
			best = s
		}
	}
	return best, len(signals) > 0
}

// ParseDisplayName splits an NFT display name such as "Degen Ape #1234"
// into its project name and number at the first '#'. Names without a '#'
// are returned whole with an empty number.
func ParseDisplayName(name string) (project, number string) {
	before, after, found := strings.Cut(name, "#")
	if !found {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
