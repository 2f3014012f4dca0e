package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"poolwatch/internal/enrich"
	"poolwatch/internal/models"
	"poolwatch/internal/observability"
	"poolwatch/internal/store"
	chain "poolwatch/pkg/solana"
)

// Log event outcomes recorded in metrics
const (
	EventFailed  = "failed"
	EventIgnored = "ignored"
	EventMatched = "matched"
)

// ErrTransactionFailed marks events whose transaction errored on chain
var ErrTransactionFailed = errors.New("transaction failed on chain")

// TransactionSource fetches a transaction by signature
type TransactionSource interface {
	ParsedTransaction(ctx context.Context, signature string) (*rpc.GetParsedTransactionResult, error)
}

// Publisher emits a fresh snapshot to subscribers
type Publisher interface {
	Publish(ctx context.Context)
}

// Result describes one processed pool creation
type Result struct {
	Accounts *chain.PoolAccounts
	Created  []string
}

// Handler turns a pool creation log event into token records
type Handler struct {
	txs       TransactionSource
	programID solana.PublicKey
	agg       *enrich.Aggregator
	publisher Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewHandler creates a handler for pools of programID. publisher may be nil.
func NewHandler(txs TransactionSource, programID solana.PublicKey, agg *enrich.Aggregator, publisher Publisher, metrics *observability.Metrics) *Handler {
	return &Handler{
		txs:       txs,
		programID: programID,
		agg:       agg,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// HandleEvent processes one log notification. It returns (nil, nil) for
// events that do not announce a pool.
func (h *Handler) HandleEvent(ctx context.Context, ev chain.LogEvent) (*Result, error) {
	if ev.Failed() {
		h.metrics.RecordLogEvent(EventFailed)
		return nil, nil
	}
	if !chain.ContainsInitMarker(ev.Logs) {
		h.metrics.RecordLogEvent(EventIgnored)
		return nil, nil
	}
	h.metrics.RecordLogEvent(EventMatched)

	tx, err := h.txs.ParsedTransaction(ctx, ev.Signature)
	if err != nil {
		h.metrics.RecordDiscoveryError("transaction")
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		h.metrics.RecordDiscoveryError("transaction")
		return nil, ErrTransactionFailed
	}

	accounts, err := chain.ExtractPoolAccounts(tx, h.programID)
	if err != nil {
		h.metrics.RecordDiscoveryError("parse")
		return nil, fmt.Errorf("extract pool accounts: %w", err)
	}

	log.WithFields(log.Fields{
		"signature":       ev.Signature,
		"pool_address":    accounts.PoolAddress,
		"lp_mint_address": accounts.LPMintAddress,
		"token_a":         accounts.TokenAMint,
		"token_b":         accounts.TokenBMint,
	}).Info("New pool detected")

	res := h.Record(ctx, accounts)
	h.metrics.RecordPoolDiscovered(len(res.Created))

	if h.publisher != nil {
		h.publisher.Publish(ctx)
	}
	return res, nil
}

// Record stores both mints of a discovered pool and fills their gaps
func (h *Handler) Record(ctx context.Context, accounts *chain.PoolAccounts) *Result {
	// pool level figures are shared by both mints
	liquidity := h.agg.FetchLiquidity(ctx, accounts.PoolAddress)
	burned := h.agg.CheckBurn(ctx, accounts.PoolAddress, accounts.LPMintAddress)

	seenAt := h.now()
	res := &Result{Accounts: accounts}
	s := h.agg.Store()

	for _, mint := range accounts.Mints() {
		if ctx.Err() != nil {
			return res
		}
		created := h.recordMint(ctx, s, mint, store.Discovery{
			PoolAddress:        accounts.PoolAddress,
			LPMintAddress:      accounts.LPMintAddress,
			LiquidityUSD:       liquidity,
			LiquidityBurnedPct: burned,
		}, seenAt)
		if created {
			res.Created = append(res.Created, mint)
		}
	}

	for _, mint := range accounts.Mints() {
		if ctx.Err() != nil {
			return res
		}
		report := h.agg.FetchRiskReport(ctx, mint)
		if report == nil {
			continue
		}
		unlock := s.LockMint(mint)
		h.agg.StoreRiskReport(mint, report)
		unlock()
	}
	return res
}

func (h *Handler) recordMint(ctx context.Context, s *store.TokenStore, mint string, d store.Discovery, seenAt time.Time) bool {
	unlock := s.LockMint(mint)
	defer unlock()

	rec, created := s.UpsertDiscovered(mint, d, seenAt)

	if rec.MetadataUnresolved() {
		h.agg.ResolveMetadata(ctx, mint)
	}
	if rec.AnalyticsIncomplete() {
		if info := h.agg.FetchAnalytics(ctx, mint); info != nil {
			s.Update(mint, func(r *models.TokenRecord) { r.Analytics = info })
		}
	}

	if created {
		log.WithFields(log.Fields{
			"mint":         mint,
			"pool_address": d.PoolAddress,
		}).Info("Token recorded")
	}
	return created
}
