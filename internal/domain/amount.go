package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Prices are JSON numbers in dumps and responses, as older dumps wrote them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// LamportsToSOL converts a lamport amount to whole SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}
