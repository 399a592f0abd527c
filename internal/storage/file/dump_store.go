// Package file stores one JSON document per mint under a dump directory,
// named <mint>.json.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/storage"
)

const dumpExt = ".json"

// DumpStore implements storage.DumpStore on the local filesystem.
// Writes go to a temp file in the same directory and are renamed into
// place, so readers never observe a partial document.
type DumpStore struct {
	dir string
}

// NewDumpStore creates the dump directory if needed.
func NewDumpStore(dir string) (*DumpStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("dump dir: %w", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &DumpStore{dir: dir}, nil
}

// Dir returns the dump directory.
func (s *DumpStore) Dir() string {
	return s.dir
}

// path validates mint as a public key so it can never escape the directory.
func (s *DumpStore) path(mint string) (string, error) {
	if !solana.IsPublicKey(mint) {
		return "", fmt.Errorf("mint %q: %w", mint, storage.ErrInvalidInput)
	}
	return filepath.Join(s.dir, mint+dumpExt), nil
}

// Get reads <mint>.json. Returns ErrNotFound if the file does not exist.
func (s *DumpStore) Get(_ context.Context, mint string) (*domain.NftDump, error) {
	path, err := s.path(mint)
	if err != nil {
		return nil, err
	}
	return readDump(path, mint)
}

func readDump(path, mint string) (*domain.NftDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read dump %s: %w", mint, err)
	}

	var d domain.NftDump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w: %v", mint, domain.ErrInvalidDump, err)
	}
	if err := d.Validate(mint); err != nil {
		return nil, err
	}
	return &d, nil
}

// Put writes the dump atomically, enforcing version order.
func (s *DumpStore) Put(_ context.Context, d *domain.NftDump) error {
	if d == nil {
		return storage.ErrInvalidInput
	}
	path, err := s.path(d.Mint)
	if err != nil {
		return err
	}

	if d.Version > 0 {
		// Missing and unreadable documents are both replaced.
		stored, err := readDump(path, d.Mint)
		if err != nil {
			stored = nil
		}
		if err := storage.CheckVersion(stored, d); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump %s: %w", d.Mint, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+d.Mint+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dump: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp dump: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp dump: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dump: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename dump %s: %w", d.Mint, err)
	}
	return nil
}

// ListMints returns the mint of every <mint>.json file, ascending.
func (s *DumpStore) ListMints(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list dump dir: %w", err)
	}

	var mints []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, dumpExt) {
			continue
		}
		mint := strings.TrimSuffix(name, dumpExt)
		if !solana.IsPublicKey(mint) {
			continue
		}
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints, nil
}

var _ storage.DumpStore = (*DumpStore)(nil)
