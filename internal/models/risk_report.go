package models

// RiskReport represents the subset of a token security report the service uses
type RiskReport struct {
	Mint      string         `json:"mint"`
	TokenMeta *ReportMeta    `json:"tokenMeta,omitempty"`
	FileMeta  *ReportMeta    `json:"fileMeta,omitempty"`
	Risks     []Risk         `json:"risks"`
	Markets   []ReportMarket `json:"markets"`
	Score     int            `json:"score"`
	Rugged    bool           `json:"rugged"`
}

// ReportMeta is the token description embedded in a report
type ReportMeta struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
	Image  string `json:"image"`
}

// Risk is a single finding of the security report
type Risk struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Score       int    `json:"score,omitempty"`
	Level       string `json:"level"`
}

// ReportMarket is one market (pool) listed in the report
type ReportMarket struct {
	Pubkey     string    `json:"pubkey"`
	MarketType string    `json:"marketType"`
	LP         *MarketLP `json:"lp"`
}

// MarketLP holds the LP lock figures of a market
type MarketLP struct {
	LPLockedPct float64 `json:"lpLockedPct"`
	LPLockedUSD float64 `json:"lpLockedUSD"`
}

// LPLockedPct returns the first market's LP locked percentage when present
func (r *RiskReport) LPLockedPct() (float64, bool) {
	if r == nil || len(r.Markets) == 0 || r.Markets[0].LP == nil {
		return 0, false
	}
	return r.Markets[0].LP.LPLockedPct, true
}
