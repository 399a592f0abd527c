// Package offchain fetches the JSON metadata documents referenced by
// on-chain metadata URIs.
package offchain

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/retry"
)

// Defaults for Options.
const (
	DefaultAttemptTimeout = 10 * time.Second
	DefaultCacheSize      = 1024
	DefaultCacheTTL       = 10 * time.Minute
	DefaultMaxBodyBytes   = 2 << 20
	DefaultIPFSGateway    = "https://ipfs.io/ipfs/"
)

// Options configures a Fetcher.
type Options struct {
	Client         *http.Client
	Policy         retry.Policy
	AttemptTimeout time.Duration
	CacheSize      int // zero disables caching
	CacheTTL       time.Duration
	MaxBodyBytes   int64
	IPFSGateway    string
	Logger         *log.Logger
}

// Fetcher retrieves off-chain metadata with bounded retries and an LRU cache.
type Fetcher struct {
	client         *http.Client
	policy         retry.Policy
	attemptTimeout time.Duration
	maxBodyBytes   int64
	ipfsGateway    string
	cache          *uriCache
	logger         *log.Logger
}

// NewFetcher creates a Fetcher. Zero values in opts take defaults.
func NewFetcher(opts Options) *Fetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.IPFSGateway == "" {
		opts.IPFSGateway = DefaultIPFSGateway
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Fetcher{
		client:         opts.Client,
		policy:         opts.Policy,
		attemptTimeout: opts.AttemptTimeout,
		maxBodyBytes:   opts.MaxBodyBytes,
		ipfsGateway:    opts.IPFSGateway,
		cache:          newURICache(opts.CacheSize, opts.CacheTTL),
		logger:         opts.Logger,
	}
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Fetch retrieves and parses the document at uri. An empty uri yields
// (nil, nil). Any non-2xx status, network error or unparseable body is
// retried until the policy is exhausted, which returns a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*domain.OffChainMetadata, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}

	if doc, ok := f.cache.Get(uri); ok {
		observability.RecordOffchainCache(true)
		return doc, nil
	}
	observability.RecordOffchainCache(false)

	target, err := f.resolve(uri)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}

	var (
		doc        *domain.OffChainMetadata
		lastStatus int
	)
	attempts, err := retry.Do(ctx, f.policy, func(int) error {
		d, status, err := f.fetchOnce(ctx, target)
		if status != 0 {
			lastStatus = status
		}
		if err != nil {
			return err
		}
		doc = d
		return nil
	}, func(attempt int, err error, next time.Duration) {
		f.logger.Printf("offchain: attempt %d for %s failed: %v (retry in %s)", attempt, uri, err, next.Round(time.Millisecond))
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{URI: uri, Attempts: attempts, LastStatus: lastStatus, Err: err}
	}

	f.cache.Add(uri, doc)
	return doc, nil
}

// resolve maps ipfs:// and ar:// URIs to HTTP gateways and rejects other schemes.
func (f *Fetcher) resolve(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return uri, nil
	case "ipfs":
		path := strings.TrimPrefix(strings.TrimPrefix(uri, u.Scheme+"://"), "ipfs/")
		return strings.TrimRight(f.ipfsGateway, "/") + "/" + path, nil
	case "ar":
		return "https://arweave.net/" + strings.TrimPrefix(uri, u.Scheme+"://"), nil
	default:
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (*domain.OffChainMetadata, int, error) {
	start := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	doc, status, err := f.get(attemptCtx, target)
	observability.RecordOffchainFetch(time.Since(start).Seconds(), err)
	return doc, status, err
}

func (f *Fetcher) get(ctx context.Context, target string) (*domain.OffChainMetadata, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, resp.StatusCode, fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes)
	}

	doc, err := domain.ParseOffChainMetadata(body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse document: %w", err)
	}
	return doc, resp.StatusCode, nil
}
