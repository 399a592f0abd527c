package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-nft-lab/internal/storage"
)

// Generator produces reports from stored dumps without touching the chain.
type Generator struct {
	dumpStore        storage.DumpStore
	observationStore storage.ObservationStore // optional
	now              func() time.Time         // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. observations may be nil.
func NewGenerator(dumps storage.DumpStore, observations storage.ObservationStore) *Generator {
	return &Generator{
		dumpStore:        dumps,
		observationStore: observations,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a price report over every cached dump in store order.
// Dumps that fail validation become error rows; dumps removed while
// listing are skipped.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	mints, err := g.dumpStore.ListMints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}

	rows := make([]Row, 0, len(mints))
	for _, mint := range mints {
		dump, err := g.dumpStore.Get(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			rows = append(rows, Row{Mint: mint, Error: err.Error()})
			continue
		}

		row := RowFromDump(dump)
		if g.observationStore != nil {
			obs, err := g.observationStore.GetByMint(ctx, mint)
			if err != nil {
				return nil, fmt.Errorf("load observations for %s: %w", mint, err)
			}
			row.Observations = len(obs)
		}
		rows = append(rows, row)
	}

	return newReport(KindPrice, "", rows, g.now()), nil
}
