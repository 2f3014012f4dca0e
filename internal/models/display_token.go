package models

import (
	"encoding/json"
)

// OptionalPct is a percentage that renders as "N/A" when absent
type OptionalPct struct {
	Value float64
	Valid bool
}

// MarshalJSON implements json.Marshaler
func (p OptionalPct) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *OptionalPct) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// any non-numeric value means not available
		*p = OptionalPct{}
		return nil
	}
	*p = OptionalPct{Value: v, Valid: true}
	return nil
}

// DisplayToken is one flattened row of a published snapshot
type DisplayToken struct {
	Mint                 string      `json:"mint"`
	Symbol               string      `json:"symbol"`
	Name                 string      `json:"name"`
	URI                  string      `json:"uri"`
	Image                string      `json:"image"`
	CreationTime         string      `json:"creationTime"`
	DextoolsData         Analytics   `json:"dextoolsData"`
	Liquidity            *float64    `json:"liquidity"`
	LiquidityBurned      string      `json:"liquidityBurned"`
	LiquidityBurnChecked bool        `json:"liquidityBurnChecked"`
	LPLockedPct          OptionalPct `json:"lpLockedPct"`
	PoolAddress          string      `json:"poolAddress"`
	LPMintAddress        string      `json:"lpMintAddress"`
	Risks                []Risk      `json:"risks"`
}
