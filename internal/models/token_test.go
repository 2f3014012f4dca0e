package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMerge(t *testing.T) {
	resolved := Metadata{Name: "Bonk", Symbol: "BONK", URI: "https://x/bonk.json", Image: "https://x/bonk.png"}

	cases := []struct {
		name string
		cur  Metadata
		next Metadata
		want Metadata
	}{
		{
			name: "Resolved Replaces Unknown",
			cur:  UnknownMetadata(),
			next: resolved,
			want: resolved,
		},
		{
			name: "Unknown Never Regresses Resolved",
			cur:  resolved,
			next: UnknownMetadata(),
			want: resolved,
		},
		{
			name: "Partial Fills Gaps",
			cur:  Metadata{Name: UnknownValue, Symbol: "BONK"},
			next: Metadata{Name: "Bonk", Symbol: UnknownValue, URI: "https://x/bonk.json"},
			want: resolved.withImage(""),
		},
		{
			name: "Empty Fields Keep Current",
			cur:  Metadata{Name: UnknownValue, Symbol: UnknownValue, URI: "https://x/a.json"},
			next: Metadata{Name: UnknownValue, Symbol: UnknownValue},
			want: Metadata{Name: UnknownValue, Symbol: UnknownValue, URI: "https://x/a.json"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cur.Merge(tc.next))
		})
	}
}

func (m Metadata) withImage(image string) Metadata {
	m.Image = image
	return m
}

func TestAnalyticsIncomplete(t *testing.T) {
	cases := []struct {
		name string
		a    Analytics
		want bool
	}{
		{"Nil", nil, true},
		{"Empty", Analytics{}, true},
		{"Nil Value", Analytics{"holders": nil}, true},
		{"Not Available", Analytics{"holders": 10.0, "mcap": NotAvailable}, true},
		{"Complete", Analytics{"holders": 10.0, "mcap": "1200"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Incomplete())
		})
	}
}

func TestTokenRecordPredicates(t *testing.T) {
	r := NewTokenRecord("mint")
	assert.True(t, r.MetadataUnresolved())
	assert.True(t, r.AnalyticsIncomplete())
	assert.False(t, r.LiquidityMissing(), "no pool, nothing to fetch")
	assert.False(t, r.BurnStatusMissing(), "no lp mint, nothing to check")
	assert.True(t, r.RiskReportMissing())

	r.PoolAddress = "pool"
	r.LPMintAddress = "lp"
	assert.True(t, r.LiquidityMissing())
	assert.True(t, r.BurnStatusMissing())

	r.LiquidityUSD = Float64Ptr(0)
	r.LiquidityBurnedPct = StringPtr(ZeroPercent)
	assert.False(t, r.LiquidityMissing())
	assert.False(t, r.BurnStatusMissing())
}

func TestTokenRecordClone(t *testing.T) {
	r := NewTokenRecord("mint")
	r.Analytics = Analytics{"price": 1.0}
	r.LiquidityUSD = Float64Ptr(10)

	c := r.Clone()
	c.Analytics["price"] = 2.0
	*c.LiquidityUSD = 20

	assert.Equal(t, 1.0, r.Analytics["price"])
	assert.Equal(t, 10.0, *r.LiquidityUSD)
}

func TestOptionalPct(t *testing.T) {
	raw, err := json.Marshal(OptionalPct{})
	require.NoError(t, err)
	assert.Equal(t, `"N/A"`, string(raw))

	raw, err = json.Marshal(OptionalPct{Value: 42.5, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, `42.5`, string(raw))

	var p OptionalPct
	require.NoError(t, json.Unmarshal([]byte(`"N/A"`), &p))
	assert.False(t, p.Valid)
	require.NoError(t, json.Unmarshal([]byte(`12`), &p))
	assert.Equal(t, OptionalPct{Value: 12, Valid: true}, p)
}

func TestLPLockedPct(t *testing.T) {
	var nilReport *RiskReport
	_, ok := nilReport.LPLockedPct()
	assert.False(t, ok)

	r := &RiskReport{Markets: []ReportMarket{{LP: nil}}}
	_, ok = r.LPLockedPct()
	assert.False(t, ok)

	r.Markets[0].LP = &MarketLP{LPLockedPct: 100}
	pct, ok := r.LPLockedPct()
	assert.True(t, ok)
	assert.Equal(t, 100.0, pct)
}
