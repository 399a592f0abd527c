package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/idhash"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/retry"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/storage"
)

// Defaults for Options.
const (
	DefaultPageSize   = 100
	DefaultWorkers    = 4
	DefaultDateLayout = "1/2/2006, 3:04:05 PM"
)

// Inference outcomes reported to metrics.
const (
	outcomePriced   = "priced"
	outcomeZero     = "zero"
	outcomeNotFound = "dump_not_found"
	outcomeFailed   = "failed"
)

// ErrDumpNotFound matches DumpNotFoundError.
var ErrDumpNotFound = errors.New("nft dump not found")

// DumpNotFoundError is returned when a mint has not been discovered yet, or
// its stored dump can no longer be read. The caller should run discovery for
// the wallet first.
type DumpNotFoundError struct {
	Mint string
}

func (e *DumpNotFoundError) Error() string {
	return fmt.Sprintf("no dump for mint %s: run discovery first", e.Mint)
}

// Is makes errors.Is(err, ErrDumpNotFound) true.
func (e *DumpNotFoundError) Is(target error) bool { return target == ErrDumpNotFound }

// MetadataFetcher retrieves off-chain metadata documents.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (*domain.OffChainMetadata, error)
}

// Options configures an Engine.
type Options struct {
	RPC          solana.RPCClient
	Updater      *storage.Updater
	Fetcher      MetadataFetcher          // nil skips the off-chain step
	Observations storage.ObservationStore // optional append-only log
	PageSize     int                      // Default: 100 signatures
	Policy       retry.Policy             // signature scan and per-signature fetch
	Workers      int                      // Default: 4 concurrent fetches
	Location     *time.Location           // Default: time.Local
	DateLayout   string
	Logger       *log.Logger
}

// Engine infers purchase prices for discovered mints.
type Engine struct {
	rpc          solana.RPCClient
	updater      *storage.Updater
	fetcher      MetadataFetcher
	observations storage.ObservationStore
	pageSize     int
	policy       retry.Policy
	workers      int
	location     *time.Location
	dateLayout   string
	logger       *log.Logger
	now          func() time.Time
}

// NewEngine creates an Engine. Zero values in opts take defaults.
func NewEngine(opts Options) *Engine {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	location := opts.Location
	if location == nil {
		location = time.Local
	}

	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		rpc:          opts.RPC,
		updater:      opts.Updater,
		fetcher:      opts.Fetcher,
		observations: opts.Observations,
		pageSize:     pageSize,
		policy:       policy,
		workers:      workers,
		location:     location,
		dateLayout:   layout,
		logger:       logger,
		now:          time.Now,
	}
}

// Infer runs one price inference pass for mint on behalf of wallet and
// persists the result into the mint's dump.
//
// The off-chain fetch is soft: on failure the scan still runs and the
// result carries IssueMetadataFetchFailed. Signatures that cannot be fetched
// count as zero and add IssueSignatureFailed. A failed signature scan is
// returned as an error.
func (e *Engine) Infer(ctx context.Context, wallet, mint string) (*domain.PriceResult, error) {
	start := e.now()
	result, err := e.infer(ctx, wallet, mint)

	outcome := outcomeFailed
	switch {
	case errors.Is(err, ErrDumpNotFound):
		outcome = outcomeNotFound
	case err != nil:
	case result.PurchasedLamports > 0:
		outcome = outcomePriced
	default:
		outcome = outcomeZero
	}
	observability.RecordInference(outcome, e.now().Sub(start).Seconds(), e.now().Unix())

	return result, err
}

func (e *Engine) infer(ctx context.Context, wallet, mint string) (*domain.PriceResult, error) {
	if err := solana.ValidateAddress("wallet", wallet); err != nil {
		return nil, err
	}
	if err := solana.ValidateAddress("mint", mint); err != nil {
		return nil, err
	}
	wallet = solana.CanonicalKey(wallet)
	mint = solana.CanonicalKey(mint)

	dump, err := e.updater.Store().Get(ctx, mint)
	if errors.Is(err, domain.ErrInvalidDump) {
		// Discovery overwrites unreadable dumps.
		e.logger.Printf("pricing: stored dump for %s is unreadable: %v", mint, err)
		return nil, &DumpNotFoundError{Mint: mint}
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &DumpNotFoundError{Mint: mint}
	}
	if err != nil {
		return nil, fmt.Errorf("load dump %s: %w", mint, err)
	}

	var issues []string

	offchain, err := e.fetchMetadata(ctx, dump)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Printf("pricing: metadata fetch for %s failed: %v", mint, err)
		issues = append(issues, domain.IssueMetadataFetchFailed)
	}

	sigs, err := e.scanSignatures(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("scan signatures for %s: %w", mint, err)
	}
	e.logger.Printf("pricing: %d signatures for %s", len(sigs), mint)

	records := make([]domain.TransactionRecord, len(sigs))
	for i, sig := range sigs {
		records[i] = domain.TransactionRecord{
			Signature: sig.Signature,
			Slot:      sig.Slot,
			BlockTime: e.formatTime(sig.BlockTime),
			Unix:      sig.BlockTime,
			Failed:    sig.Err != nil,
		}
	}

	signals, err := e.extractSignals(ctx, wallet, sigs)
	if err != nil {
		return nil, err
	}
	failed := false
	for _, s := range signals {
		observability.RecordSignature(string(s.Status))
		failed = failed || s.Status == domain.SignatureFailed
	}
	if failed {
		issues = append(issues, domain.IssueSignatureFailed)
	}

	result := &domain.PriceResult{
		Mint:         mint,
		Wallet:       wallet,
		Transactions: records,
		Issues:       issues,
	}
	if len(records) > 0 {
		// Purchase date follows the node's ordering, which is most recent first.
		result.PurchasedDate = records[0].BlockTime
	}
	if best, ok := MaxSignal(signals); ok && best.Lamports > 0 {
		result.PurchasedLamports = best.Lamports
		result.PriceSignature = best.Signature
	}
	result.PurchasedPrice = domain.LamportsToSOL(result.PurchasedLamports)

	e.logObservations(ctx, wallet, mint, signals)

	written, err := e.persist(ctx, dump, offchain, result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Printf("pricing: dump write for %s failed: %v", mint, err)
		observability.RecordDumpWrite("error")
		result.Issues = append(result.Issues, domain.IssueDumpWriteFailed)
		written = dump
	} else {
		observability.RecordDumpWrite("ok")
	}

	result.Summary = summarize(written, offchain, result)
	return result, nil
}

// fetchMetadata returns nil without error when the dump has no URI.
func (e *Engine) fetchMetadata(ctx context.Context, dump *domain.NftDump) (*domain.OffChainMetadata, error) {
	uri := dump.MetadataURI()
	if uri == "" || e.fetcher == nil {
		return nil, nil
	}
	return e.fetcher.Fetch(ctx, uri)
}

// scanSignatures reads one page of the most recent signatures of mint.
func (e *Engine) scanSignatures(ctx context.Context, mint string) ([]solana.SignatureInfo, error) {
	var sigs []solana.SignatureInfo
	_, err := retry.Do(ctx, e.policy, func(int) error {
		var err error
		sigs, err = e.rpc.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{
			Limit:      e.pageSize,
			Commitment: solana.CommitmentConfirmed,
		})
		return classify(err)
	}, func(attempt int, err error, next time.Duration) {
		e.logger.Printf("pricing: signature scan for %s attempt %d failed, retrying in %s: %v", mint, attempt, next, err)
	})
	return sigs, err
}

// extractSignals fetches every signature concurrently. Results keep the
// order of sigs. Fetch failures become zero-valued failed signals.
func (e *Engine) extractSignals(ctx context.Context, wallet string, sigs []solana.SignatureInfo) ([]domain.PriceSignal, error) {
	signals := make([]domain.PriceSignal, len(sigs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, sig := range sigs {
		g.Go(func() error {
			signal, err := e.extractSignal(gctx, wallet, sig)
			if err != nil {
				return err
			}
			signals[i] = signal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signals, nil
}

func (e *Engine) extractSignal(ctx context.Context, wallet string, sig solana.SignatureInfo) (domain.PriceSignal, error) {
	signal := domain.PriceSignal{
		Signature: sig.Signature,
		Slot:      sig.Slot,
		BlockTime: sig.BlockTime,
	}

	var tx *solana.ParsedTransaction
	_, err := retry.Do(ctx, e.policy, func(int) error {
		var err error
		tx, err = e.rpc.GetParsedTransaction(ctx, sig.Signature, solana.CommitmentFinalized)
		return classify(err)
	}, nil)
	switch {
	case err != nil && ctx.Err() != nil:
		return signal, ctx.Err()
	case err != nil:
		e.logger.Printf("pricing: transaction %s failed: %v", sig.Signature, err)
		signal.Status = domain.SignatureFailed
		return signal, nil
	case tx == nil:
		signal.Status = domain.SignatureUnresolved
		return signal, nil
	}

	if tx.Signature == "" {
		tx.Signature = sig.Signature
	}
	parsed := ExtractSignal(tx, wallet)
	if parsed.BlockTime == nil {
		parsed.BlockTime = sig.BlockTime
	}
	e.logger.Printf("pricing: parsed price %s: purchaser %q lamports %d", sig.Signature, parsed.Purchaser, parsed.Lamports)
	return parsed, nil
}

// classify marks errors the chain client will never recover from as permanent.
func classify(err error) error {
	if err == nil || solana.IsRetryable(err) {
		return err
	}
	return retry.Permanent(err)
}

func (e *Engine) formatTime(unix *int64) string {
	if unix == nil {
		return ""
	}
	return time.Unix(*unix, 0).In(e.location).Format(e.dateLayout)
}

// logObservations appends every signal to the observation log. Failures
// are logged and do not affect the result.
func (e *Engine) logObservations(ctx context.Context, wallet, mint string, signals []domain.PriceSignal) {
	if e.observations == nil || len(signals) == 0 {
		return
	}

	observedAt := e.now().UnixMilli()
	obs := make([]*domain.PriceObservation, 0, len(signals))
	for _, s := range signals {
		var blockTime int64
		if s.BlockTime != nil {
			blockTime = *s.BlockTime
		}
		obs = append(obs, &domain.PriceObservation{
			ObservationID: idhash.ComputeObservationID(mint, wallet, s.Signature),
			Mint:          mint,
			Wallet:        wallet,
			Signature:     s.Signature,
			Slot:          s.Slot,
			BlockTime:     blockTime,
			Purchaser:     s.Purchaser,
			Lamports:      s.Lamports,
			Status:        s.Status,
			ObservedAt:    observedAt,
		})
	}

	if err := e.observations.InsertBulk(ctx, obs); err != nil {
		e.logger.Printf("pricing: observation log for %s failed: %v", mint, err)
		return
	}
	observability.RecordObservations(len(obs))
}

// persist merges the pass into the stored dump. The dump read at the start
// of the pass stands in if the record disappeared in between.
func (e *Engine) persist(ctx context.Context, loaded *domain.NftDump, offchain *domain.OffChainMetadata, result *domain.PriceResult) (*domain.NftDump, error) {
	return e.updater.Update(ctx, result.Mint, func(current *domain.NftDump) (*domain.NftDump, error) {
		if current == nil {
			current = loaded
		}
		if offchain != nil {
			current.NftMetadata = offchain.Raw
		}
		price := result.PurchasedPrice
		current.PurchasedPrice = &price
		current.PurchasedLamports = result.PurchasedLamports
		current.PurchasedDate = result.PurchasedDate
		current.PriceSignature = result.PriceSignature
		current.TransactionData = result.Transactions

		current.Issues = withoutPassIssues(current.Issues)
		for _, issue := range result.Issues {
			current.AddIssue(issue)
		}
		return current, nil
	})
}

// withoutPassIssues drops issues owned by a previous inference pass.
func withoutPassIssues(issues []string) []string {
	kept := issues[:0:0]
	for _, issue := range issues {
		switch issue {
		case domain.IssueMetadataFetchFailed, domain.IssueSignatureFailed:
			continue
		}
		kept = append(kept, issue)
	}
	return kept
}

// summarize builds the display summary from the freshest metadata
// available: this pass's document, the cached one, then on-chain fields.
func summarize(dump *domain.NftDump, offchain *domain.OffChainMetadata, result *domain.PriceResult) domain.NftSummary {
	summary := domain.NftSummary{
		Mint:           result.Mint,
		PurchasedPrice: result.PurchasedPrice,
		PurchasedDate:  result.PurchasedDate,
	}

	doc := offchain
	if doc == nil && dump != nil && len(dump.NftMetadata) > 0 {
		doc, _ = domain.ParseOffChainMetadata(dump.NftMetadata)
	}

	var name, symbol string
	if dump != nil && dump.Metadata != nil {
		name = dump.Metadata.Data.Name
		symbol = dump.Metadata.Data.Symbol
	}
	if doc != nil {
		if doc.Name != "" {
			name = doc.Name
		}
		if doc.Symbol != "" {
			symbol = doc.Symbol
		}
		if doc.Collection != nil {
			summary.Family = doc.Collection.Family
		}
	}

	summary.ProjectName, summary.NftNumber = ParseDisplayName(name)
	summary.Symbol = symbol
	return summary
}

// MintOutcome is the result of one mint in a batch pass.
type MintOutcome struct {
	Mint   string
	Result *domain.PriceResult
	Err    error
}

// InferAll runs Infer over every cached mint with bounded concurrency.
// A failing mint is reported in its outcome and never stops its siblings.
// Outcomes follow the store's mint order.
func (e *Engine) InferAll(ctx context.Context, wallet string) ([]MintOutcome, error) {
	if err := solana.ValidateAddress("wallet", wallet); err != nil {
		return nil, err
	}

	mints, err := e.updater.Store().ListMints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}

	outcomes := make([]MintOutcome, len(mints))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, mint := range mints {
		if ctx.Err() != nil {
			outcomes[i] = MintOutcome{Mint: mint, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			result, err := e.Infer(ctx, wallet, mint)
			outcomes[i] = MintOutcome{Mint: mint, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, ctx.Err()
}
