package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by observation id, so re-inserted
// observations collapse on merge; reads use FINAL to see them collapsed.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk appends observations in a single batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o == nil || o.ObservationID == "" || o.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_observations", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			observation_id, mint, wallet, signature, slot, block_time,
			purchaser, lamports, status, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.ObservationID, o.Mint, o.Wallet, o.Signature, o.Slot, o.BlockTime,
			o.Purchaser, o.Lamports, string(o.Status), uint64(o.ObservedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves observations for mint ordered by observed_at, then slot.
func (s *ObservationStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT observation_id, mint, wallet, signature, slot, block_time,
			purchaser, lamports, status, observed_at
		FROM price_observations FINAL
		WHERE mint = ?
		ORDER BY observed_at ASC, slot ASC, observation_id ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var (
			o          domain.PriceObservation
			status     string
			observedAt uint64
		)

		err := rows.Scan(
			&o.ObservationID, &o.Mint, &o.Wallet, &o.Signature, &o.Slot, &o.BlockTime,
			&o.Purchaser, &o.Lamports, &status, &observedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.Status = domain.SignatureStatus(status)
		o.ObservedAt = int64(observedAt)
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}
