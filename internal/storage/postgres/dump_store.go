package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/storage"
)

// DumpStore implements storage.DumpStore using a JSONB document per mint.
// The version column gives optimistic concurrency across processes.
type DumpStore struct {
	pool *Pool
}

// NewDumpStore creates a new DumpStore.
func NewDumpStore(pool *Pool) *DumpStore {
	return &DumpStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DumpStore = (*DumpStore)(nil)

// Get retrieves the dump for mint. Returns ErrNotFound if not exists.
func (s *DumpStore) Get(ctx context.Context, mint string) (d *domain.NftDump, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "get_dump", time.Since(start).Seconds(), ignoreNotFound(err))
	}()

	query := `
		SELECT version, document
		FROM nft_dumps
		WHERE mint = $1
	`

	var (
		version int64
		doc     []byte
	)
	if err := s.pool.QueryRow(ctx, query, mint).Scan(&version, &doc); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get dump: %w", err)
	}

	var dump domain.NftDump
	if err := json.Unmarshal(doc, &dump); err != nil {
		return nil, &storage.InvalidDumpError{Mint: mint, Version: version, Err: fmt.Errorf("%w: %v", domain.ErrInvalidDump, err)}
	}
	if err := dump.Validate(mint); err != nil {
		return nil, &storage.InvalidDumpError{Mint: mint, Version: version, Err: err}
	}
	dump.Version = version
	return &dump, nil
}

// Put writes the dump. Version 1 may create or replace an unversioned row;
// higher versions must follow the stored version; 0 writes unconditionally.
func (s *DumpStore) Put(ctx context.Context, d *domain.NftDump) (err error) {
	if d == nil || d.Mint == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "put_dump", time.Since(start).Seconds(), err)
	}()

	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dump %s: %w", d.Mint, err)
	}

	var query string
	switch {
	case d.Version == 0:
		query = `
			INSERT INTO nft_dumps (mint, account, version, document, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (mint) DO UPDATE SET
				account = EXCLUDED.account,
				version = EXCLUDED.version,
				document = EXCLUDED.document,
				updated_at = now()
		`
	case d.Version == 1:
		query = `
			INSERT INTO nft_dumps (mint, account, version, document, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (mint) DO UPDATE SET
				account = EXCLUDED.account,
				version = EXCLUDED.version,
				document = EXCLUDED.document,
				updated_at = now()
			WHERE nft_dumps.version = 0
		`
	default:
		query = `
			UPDATE nft_dumps SET
				account = $2,
				version = $3,
				document = $4,
				updated_at = now()
			WHERE mint = $1 AND version = $3 - 1
		`
	}

	tag, err := s.pool.Exec(ctx, query, d.Mint, d.Account, d.Version, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: mint %s", storage.ErrVersionConflict, d.Mint)
		}
		return fmt.Errorf("put dump: %w", err)
	}
	if d.Version > 0 && tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: mint %s write version %d", storage.ErrVersionConflict, d.Mint, d.Version)
	}
	return nil
}

// ListMints returns every stored mint in ascending order.
func (s *DumpStore) ListMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint FROM nft_dumps ORDER BY mint ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, fmt.Errorf("scan mint: %w", err)
		}
		mints = append(mints, mint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mints: %w", err)
	}
	return mints, nil
}
