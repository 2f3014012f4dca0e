package models

import (
	"time"
)

const (
	// UnknownValue is the placeholder for a name or symbol that has not been resolved yet
	UnknownValue = "Unknown"
	// NotAvailable is rendered for values a provider never supplied
	NotAvailable = "N/A"
	// ZeroPercent is the burn figure shown when nothing is known to be burned
	ZeroPercent = "0%"
)

// Metadata represents the human readable description of a mint
type Metadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
	Image  string `json:"image"`
}

// UnknownMetadata returns the all-sentinel metadata record
func UnknownMetadata() Metadata {
	return Metadata{Name: UnknownValue, Symbol: UnknownValue}
}

// Resolved reports whether both name and symbol carry real values
func (m Metadata) Resolved() bool {
	return known(m.Name) && known(m.Symbol)
}

func known(v string) bool {
	return v != "" && v != UnknownValue
}

// Merge returns the better of m and next without losing known fields.
// A fully resolved next replaces m; otherwise known fields of next fill gaps.
func (m Metadata) Merge(next Metadata) Metadata {
	if next.Resolved() {
		return next
	}
	if m.Resolved() {
		return m
	}
	out := m
	if known(next.Name) {
		out.Name = next.Name
	}
	if known(next.Symbol) {
		out.Symbol = next.Symbol
	}
	if next.URI != "" {
		out.URI = next.URI
	}
	if next.Image != "" {
		out.Image = next.Image
	}
	return out
}

// Analytics is the provider-specific statistics map for a token
type Analytics map[string]interface{}

// Incomplete reports whether any expected statistic is missing
func (a Analytics) Incomplete() bool {
	if len(a) == 0 {
		return true
	}
	for _, v := range a {
		if v == nil {
			return true
		}
		if s, ok := v.(string); ok && s == NotAvailable {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy of the map
func (a Analytics) Clone() Analytics {
	if a == nil {
		return nil
	}
	out := make(Analytics, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// TokenRecord is the fused view of everything known about one mint
type TokenRecord struct {
	Mint               string      `json:"mint"`
	HasLiquidity       bool        `json:"has_liquidity"`
	DiscoveredAt       time.Time   `json:"discovered_at"`
	PoolAddress        string      `json:"pool_address"`
	LPMintAddress      string      `json:"lp_mint_address"`
	Metadata           Metadata    `json:"metadata"`
	Analytics          Analytics   `json:"analytics"`
	LiquidityUSD       *float64    `json:"liquidity_usd"`
	LiquidityBurnedPct *string     `json:"liquidity_burned_pct"`
	RiskReport         *RiskReport `json:"risk_report"`
}

// NewTokenRecord creates an empty record with sentinel metadata
func NewTokenRecord(mint string) *TokenRecord {
	return &TokenRecord{
		Mint:     mint,
		Metadata: UnknownMetadata(),
	}
}

// Clone returns a deep enough copy that the caller can mutate freely
func (r *TokenRecord) Clone() *TokenRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Analytics = r.Analytics.Clone()
	if r.LiquidityUSD != nil {
		v := *r.LiquidityUSD
		out.LiquidityUSD = &v
	}
	if r.LiquidityBurnedPct != nil {
		v := *r.LiquidityBurnedPct
		out.LiquidityBurnedPct = &v
	}
	// reports are replaced wholesale, never mutated in place
	return &out
}

// MetadataUnresolved reports whether name or symbol is still a sentinel
func (r *TokenRecord) MetadataUnresolved() bool {
	return !r.Metadata.Resolved()
}

// AnalyticsIncomplete reports whether analytics need (re)fetching
func (r *TokenRecord) AnalyticsIncomplete() bool {
	return r.Analytics.Incomplete()
}

// LiquidityMissing reports whether pool liquidity can and should be fetched
func (r *TokenRecord) LiquidityMissing() bool {
	return r.LiquidityUSD == nil && r.PoolAddress != ""
}

// BurnStatusMissing reports whether the LP burn check can and should run
func (r *TokenRecord) BurnStatusMissing() bool {
	return r.LiquidityBurnedPct == nil && r.LPMintAddress != ""
}

// RiskReportMissing reports whether no risk report has been stored yet
func (r *TokenRecord) RiskReportMissing() bool {
	return r.RiskReport == nil
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
