package enrich

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/models"
	"poolwatch/internal/observability"
	"poolwatch/internal/store"
)

// DefaultCallTimeout bounds each provider call
const DefaultCallTimeout = 5 * time.Second

// Provider names used in logs and metrics
const (
	ProviderAnalytics = "dextools_info"
	ProviderLiquidity = "dextools_liquidity"
	ProviderBurn      = "burn_check"
	ProviderRisk      = "rugcheck"
)

// AnalyticsSource returns token statistics
type AnalyticsSource interface {
	TokenInfo(ctx context.Context, mint string) (map[string]interface{}, error)
}

// LiquiditySource returns the USD liquidity of a pool
type LiquiditySource interface {
	PoolLiquidity(ctx context.Context, pool string) (float64, error)
}

// RiskSource returns the security report of a mint
type RiskSource interface {
	Report(ctx context.Context, mint string) (*models.RiskReport, error)
}

// MetadataResolver turns a mint into display metadata, never failing
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) models.Metadata
}

// Sources groups the external collaborators of the aggregator
type Sources struct {
	Analytics AnalyticsSource
	Liquidity LiquiditySource
	Holders   HolderSource
	Risk      RiskSource
	Metadata  MetadataResolver
}

// Outcome lists which parts of a record an enrichment pass filled in
type Outcome struct {
	Analytics bool
	Liquidity bool
	Burn      bool
	Risk      bool
}

// Changed reports whether anything was written
func (o Outcome) Changed() bool {
	return o.Analytics || o.Liquidity || o.Burn || o.Risk
}

// Aggregator fills the gaps of token records from external sources.
// Every fetch is gated by the record's incompleteness predicates and a
// failed fetch never overwrites data already stored.
type Aggregator struct {
	store       *store.TokenStore
	src         Sources
	metrics     *observability.Metrics
	callTimeout time.Duration
}

// NewAggregator creates an aggregator writing to s
func NewAggregator(s *store.TokenStore, src Sources, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		store:       s,
		src:         src,
		metrics:     metrics,
		callTimeout: DefaultCallTimeout,
	}
}

// Store returns the store the aggregator writes to
func (a *Aggregator) Store() *store.TokenStore {
	return a.store
}

// Enrich runs the four gated checks for mint while holding its lock.
// Unknown mints are ignored.
func (a *Aggregator) Enrich(ctx context.Context, mint string) Outcome {
	unlock := a.store.LockMint(mint)
	defer unlock()

	rec, err := a.store.Get(mint)
	if err != nil {
		return Outcome{}
	}

	var out Outcome
	if rec.AnalyticsIncomplete() {
		if info := a.FetchAnalytics(ctx, mint); info != nil {
			a.store.Update(mint, func(r *models.TokenRecord) { r.Analytics = info })
			out.Analytics = true
		}
	}
	if rec.LiquidityMissing() {
		if liq := a.FetchLiquidity(ctx, rec.PoolAddress); liq != nil {
			a.store.Update(mint, func(r *models.TokenRecord) {
				if r.LiquidityUSD == nil {
					r.LiquidityUSD = liq
				}
			})
			out.Liquidity = true
		}
	}
	if rec.BurnStatusMissing() {
		if burned := a.CheckBurn(ctx, rec.PoolAddress, rec.LPMintAddress); burned != nil {
			a.store.Update(mint, func(r *models.TokenRecord) {
				if r.LiquidityBurnedPct == nil {
					r.LiquidityBurnedPct = burned
				}
			})
			out.Burn = true
		}
	}
	if rec.RiskReportMissing() {
		if report := a.FetchRiskReport(ctx, mint); report != nil {
			a.StoreRiskReport(mint, report)
			out.Risk = true
		}
	}
	return out
}

// FetchAnalytics returns fresh statistics for mint, or nil on failure
func (a *Aggregator) FetchAnalytics(ctx context.Context, mint string) models.Analytics {
	if a.src.Analytics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	started := time.Now()
	info, err := a.src.Analytics.TokenInfo(ctx, mint)
	a.metrics.RecordProvider(ProviderAnalytics, started, err)
	if err != nil {
		log.WithFields(log.Fields{
			"mint":  mint,
			"error": err.Error(),
		}).Warn("Failed to fetch token analytics")
		return nil
	}
	return models.Analytics(info)
}

// FetchLiquidity returns the USD liquidity of pool, or nil on failure
func (a *Aggregator) FetchLiquidity(ctx context.Context, pool string) *float64 {
	if a.src.Liquidity == nil || pool == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	started := time.Now()
	liq, err := a.src.Liquidity.PoolLiquidity(ctx, pool)
	a.metrics.RecordProvider(ProviderLiquidity, started, err)
	if err != nil {
		log.WithFields(log.Fields{
			"pool_address": pool,
			"error":        err.Error(),
		}).Warn("Failed to fetch pool liquidity")
		return nil
	}
	return models.Float64Ptr(liq)
}

// CheckBurn returns the confirmed burn percentage of lpMint, or nil when the
// check could not be completed
func (a *Aggregator) CheckBurn(ctx context.Context, pool, lpMint string) *string {
	if a.src.Holders == nil || lpMint == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	started := time.Now()
	pct, err := CheckBurn(ctx, a.src.Holders, pool, lpMint)
	a.metrics.RecordProvider(ProviderBurn, started, err)
	if err != nil {
		log.WithFields(log.Fields{
			"pool_address":    pool,
			"lp_mint_address": lpMint,
			"error":           err.Error(),
		}).Warn("Failed to check liquidity burn")
		return nil
	}
	return models.StringPtr(pct)
}

// FetchRiskReport returns the security report of mint, or nil on failure
func (a *Aggregator) FetchRiskReport(ctx context.Context, mint string) *models.RiskReport {
	if a.src.Risk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	started := time.Now()
	report, err := a.src.Risk.Report(ctx, mint)
	a.metrics.RecordProvider(ProviderRisk, started, err)
	if err != nil {
		log.WithFields(log.Fields{
			"mint":  mint,
			"error": err.Error(),
		}).Warn("Failed to fetch risk report")
		return nil
	}
	return report
}

// StoreRiskReport replaces the stored report of mint; nil is ignored
func (a *Aggregator) StoreRiskReport(mint string, report *models.RiskReport) {
	if report == nil {
		return
	}
	a.store.Update(mint, func(r *models.TokenRecord) { r.RiskReport = report })
}

// ResolveMetadata resolves mint and merges the result into its record.
// It returns the stored metadata after the merge.
func (a *Aggregator) ResolveMetadata(ctx context.Context, mint string) models.Metadata {
	if a.src.Metadata == nil {
		return models.UnknownMetadata()
	}
	resolved := a.src.Metadata.Resolve(ctx, mint)
	rec := a.store.Update(mint, func(r *models.TokenRecord) {
		r.Metadata = r.Metadata.Merge(resolved)
	})
	return rec.Metadata
}

// RefreshMetadata resolves mint under its lock. It is the manual retry path
// and is not bounded by the backfill attempt ceiling.
func (a *Aggregator) RefreshMetadata(ctx context.Context, mint string) (models.Metadata, error) {
	unlock := a.store.LockMint(mint)
	defer unlock()

	if _, err := a.store.Get(mint); err != nil {
		return models.Metadata{}, err
	}
	return a.ResolveMetadata(ctx, mint), nil
}
