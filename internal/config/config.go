// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"solana-nft-lab/internal/retry"
)

// Dump store backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// maxSignaturePage is the largest page getSignaturesForAddress accepts.
const maxSignaturePage = 1000

// Config holds every tunable of the service and the CLI.
type Config struct {
	RPCEndpoint  string        `env:"SOLANA_RPC_ENDPOINT" envDefault:"https://api.mainnet-beta.solana.com"`
	RPCTimeout   time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`
	RPCRateLimit float64       `env:"RPC_RATE_LIMIT" envDefault:"0"` // requests per second, 0 disables
	RPCRateBurst int           `env:"RPC_RATE_BURST" envDefault:"1"`

	DumpBackend   string `env:"DUMP_BACKEND" envDefault:"file"`
	DumpDir       string `env:"DUMP_DIR" envDefault:"dumps"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickHouseDSN string `env:"CLICKHOUSE_DSN"` // optional observation log

	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	OffchainMaxAttempts    int           `env:"OFFCHAIN_MAX_ATTEMPTS" envDefault:"5"`
	OffchainTimeout        time.Duration `env:"OFFCHAIN_TIMEOUT" envDefault:"10s"`
	OffchainInitialBackoff time.Duration `env:"OFFCHAIN_INITIAL_BACKOFF" envDefault:"250ms"`
	OffchainMaxBackoff     time.Duration `env:"OFFCHAIN_MAX_BACKOFF" envDefault:"5s"`
	OffchainCacheSize      int           `env:"OFFCHAIN_CACHE_SIZE" envDefault:"1024"`
	OffchainCacheTTL       time.Duration `env:"OFFCHAIN_CACHE_TTL" envDefault:"10m"`

	SignaturePageSize    int           `env:"SIGNATURE_PAGE_SIZE" envDefault:"100"`
	SignatureMaxAttempts int           `env:"SIGNATURE_MAX_ATTEMPTS" envDefault:"5"`
	SignatureMaxElapsed  time.Duration `env:"SIGNATURE_MAX_ELAPSED" envDefault:"30s"`

	Workers         int    `env:"WORKERS" envDefault:"4"`
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Local"`
	DateLayout      string `env:"DATE_LAYOUT" envDefault:"1/2/2006, 3:04:05 PM"`
}

// Load reads the optional dotenv files (".env" when none are given) and
// then parses the environment. Variables already set in the environment
// take precedence over dotenv values. Missing dotenv files are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate rejects unusable settings. Every retry bound must be finite.
func (c Config) Validate() error {
	var errs []error

	if c.RPCEndpoint == "" {
		errs = append(errs, errors.New("SOLANA_RPC_ENDPOINT is required"))
	}
	if c.RPCTimeout <= 0 {
		errs = append(errs, errors.New("RPC_TIMEOUT must be positive"))
	}
	if c.RPCRateLimit < 0 {
		errs = append(errs, errors.New("RPC_RATE_LIMIT must not be negative"))
	}
	if c.RPCRateLimit > 0 && c.RPCRateBurst <= 0 {
		errs = append(errs, errors.New("RPC_RATE_BURST must be positive when RPC_RATE_LIMIT is set"))
	}

	switch c.DumpBackend {
	case BackendFile:
		if c.DumpDir == "" {
			errs = append(errs, errors.New("DUMP_DIR is required for the file backend"))
		}
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("DUMP_BACKEND %q is not one of file, memory, postgres", c.DumpBackend))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.OffchainMaxAttempts <= 0 {
		errs = append(errs, errors.New("OFFCHAIN_MAX_ATTEMPTS must be positive"))
	}
	if c.OffchainTimeout <= 0 {
		errs = append(errs, errors.New("OFFCHAIN_TIMEOUT must be positive"))
	}
	if c.OffchainInitialBackoff < 0 || c.OffchainMaxBackoff < 0 {
		errs = append(errs, errors.New("OFFCHAIN backoff intervals must not be negative"))
	}
	if c.OffchainCacheSize < 0 {
		errs = append(errs, errors.New("OFFCHAIN_CACHE_SIZE must not be negative"))
	}
	if c.SignaturePageSize <= 0 || c.SignaturePageSize > maxSignaturePage {
		errs = append(errs, fmt.Errorf("SIGNATURE_PAGE_SIZE must be between 1 and %d", maxSignaturePage))
	}
	if c.SignatureMaxAttempts <= 0 {
		errs = append(errs, errors.New("SIGNATURE_MAX_ATTEMPTS must be positive"))
	}
	if c.SignatureMaxElapsed < 0 {
		errs = append(errs, errors.New("SIGNATURE_MAX_ELAPSED must not be negative"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("WORKERS must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves DISPLAY_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	return loc, nil
}

// OffchainPolicy is the retry policy of the off-chain metadata fetch.
func (c Config) OffchainPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.OffchainMaxAttempts
	p.InitialInterval = c.OffchainInitialBackoff
	p.MaxInterval = c.OffchainMaxBackoff
	return p
}

// SignaturePolicy is the retry policy of the signature scan and of each
// per-signature transaction fetch.
func (c Config) SignaturePolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.SignatureMaxAttempts
	p.MaxElapsed = c.SignatureMaxElapsed
	return p
}
