package snapshot

import (
	"sort"
	"time"

	"poolwatch/internal/models"
)

// CreationTimeLayout formats DiscoveredAt in published rows
const CreationTimeLayout = time.RFC3339

// Build derives the display view of every record that has pool liquidity,
// newest first with ties broken by mint. It never mutates the input.
func Build(records []*models.TokenRecord) []models.DisplayToken {
	liquid := make([]*models.TokenRecord, 0, len(records))
	for _, r := range records {
		if r != nil && r.HasLiquidity {
			liquid = append(liquid, r)
		}
	}

	sort.SliceStable(liquid, func(i, j int) bool {
		a, b := liquid[i], liquid[j]
		if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
			return a.DiscoveredAt.After(b.DiscoveredAt)
		}
		return a.Mint < b.Mint
	})

	out := make([]models.DisplayToken, 0, len(liquid))
	for _, r := range liquid {
		out = append(out, Display(r))
	}
	return out
}

// Display flattens one record, filling metadata gaps from its risk report
func Display(r *models.TokenRecord) models.DisplayToken {
	var reportMeta, fileMeta models.ReportMeta
	var risks []models.Risk
	if r.RiskReport != nil {
		if r.RiskReport.TokenMeta != nil {
			reportMeta = *r.RiskReport.TokenMeta
		}
		if r.RiskReport.FileMeta != nil {
			fileMeta = *r.RiskReport.FileMeta
		}
		risks = r.RiskReport.Risks
	}
	if risks == nil {
		risks = []models.Risk{}
	}

	d := models.DisplayToken{
		Mint:          r.Mint,
		Name:          pick(r.Metadata.Name, reportMeta.Name, models.UnknownValue),
		Symbol:        pick(r.Metadata.Symbol, reportMeta.Symbol, models.UnknownValue),
		URI:           firstNonEmpty(r.Metadata.URI, reportMeta.URI),
		Image:         firstNonEmpty(r.Metadata.Image, reportMeta.Image, fileMeta.Image),
		CreationTime:  models.UnknownValue,
		DextoolsData:  r.Analytics.Clone(),
		PoolAddress:   r.PoolAddress,
		LPMintAddress: r.LPMintAddress,
		Risks:         risks,
	}
	if d.DextoolsData == nil {
		d.DextoolsData = models.Analytics{}
	}
	if !r.DiscoveredAt.IsZero() {
		d.CreationTime = r.DiscoveredAt.UTC().Format(CreationTimeLayout)
	}
	if r.LiquidityUSD != nil {
		v := *r.LiquidityUSD
		d.Liquidity = &v
	}

	d.LiquidityBurned = models.ZeroPercent
	if r.LiquidityBurnedPct != nil {
		d.LiquidityBurned = *r.LiquidityBurnedPct
		d.LiquidityBurnChecked = true
	}

	if pct, ok := r.RiskReport.LPLockedPct(); ok {
		d.LPLockedPct = models.OptionalPct{Value: pct, Valid: true}
	}
	return d
}

// pick returns primary unless it is a sentinel, then fallback, then def
func pick(primary, fallback, def string) string {
	if primary != "" && primary != models.UnknownValue {
		return primary
	}
	if fallback != "" {
		return fallback
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
