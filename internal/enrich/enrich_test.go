package enrich

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-surveillance-etl/internal/model"
)

func testReference() *ReferenceData {
	return &ReferenceData{
		ProductsByISIN: map[string]Product{
			"US0378331005": {ISIN: "US0378331005", Symbol: "AAPL", InstrumentType: "BOND", LiquidityKey: "HIGH"},
		},
		ProductsByCUSIP: map[string]Product{
			"037833100": {CUSIP: "037833100", Symbol: "AAPL", InstrumentType: "BOND"},
		},
		Clients: map[string]Client{
			"C-1": {ClientID: "C-1", RiskTier: "TIER1", Region: "EMEA"},
		},
	}
}

func TestEnrichProductJoin(t *testing.T) {
	records := []model.Record{
		{"isin": "US0378331005", "client_id": "C-1", "quantity": 10, "price": 5.0},
		{"cusip": "037833100", "client_id": "C-9", "quantity": 10, "price": 5.0},
		{"isin": "XX0000000000", "quantity": 10, "price": 5.0},
	}

	out := Enrich(records, testReference(), nil)

	assert.Equal(t, "AAPL", out[0]["symbol"])
	assert.Equal(t, "BOND", out[0]["instrument_type"])
	assert.Equal(t, "TIER1", out[0]["risk_tier"])
	assert.Equal(t, "EMEA", out[0]["region"])

	// CUSIP fallback when ISIN is absent; unknown client leaves tier empty.
	assert.Equal(t, "AAPL", out[1]["symbol"])
	_, hasTier := out[1]["risk_tier"]
	assert.False(t, hasTier)

	// Unknown product leaves the record untouched.
	_, hasSymbol := out[2]["symbol"]
	assert.False(t, hasSymbol)

	// Inputs are never mutated.
	_, mutated := records[0]["symbol"]
	assert.False(t, mutated)
}

func TestEnrichDerivesNotionalWhenMissing(t *testing.T) {
	records := []model.Record{
		{"quantity": 100, "price": 10.0},
		{"quantity": 100, "price": 10.0, "notional": 1234.0},
		{"quantity": nil, "price": 10.0},
	}

	out := Enrich(records, testReference(), nil)

	assert.Equal(t, 1000.0, out[0]["notional"])
	assert.Equal(t, 1234.0, out[1]["notional"], "feed-supplied notional is kept for the tolerance rule")
	_, ok := out[2]["notional"]
	assert.False(t, ok)
}

func TestLiquidityBucketThresholds(t *testing.T) {
	tests := []struct {
		name       string
		instrument string
		notional   float64
		want       string
	}{
		{"bond high", "BOND", 5_000_000, "HIGH"},
		{"bond med", "BOND", 1_000_000, "MED"},
		{"bond low", "BOND", 999_999, "LOW"},
		{"swap high", "SWAP", 10_000_000, "HIGH"},
		{"option med", "OPTION", 2_000_000, "MED"},
		{"repo low", "REPO", 1_999_999, "LOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := model.Record{"instrument_type": tt.instrument, "notional": tt.notional}
			out := Enrich([]model.Record{rec}, testReference(), nil)
			assert.Equal(t, tt.want, out[0]["liquidity_bucket"])
		})
	}
}

func TestLiquidityBucketNotOverwritten(t *testing.T) {
	rec := model.Record{"instrument_type": "BOND", "notional": 100.0, "liquidity_bucket": "MED"}
	out := Enrich([]model.Record{rec}, testReference(), nil)
	assert.Equal(t, "MED", out[0]["liquidity_bucket"])
}

func TestLoadReference(t *testing.T) {
	dir := t.TempDir()
	productPath := filepath.Join(dir, "product_master.csv")
	clientPath := filepath.Join(dir, "client_master.csv")

	require.NoError(t, os.WriteFile(productPath, []byte(
		"isin,cusip,symbol,instrument_type,liquidity_bucket\n"+
			"US0378331005,037833100,AAPL,BOND,HIGH\n"), 0644))
	require.NoError(t, os.WriteFile(clientPath, []byte(
		"client_id, risk_tier ,region\nC-1,TIER1,EMEA\n"), 0644))

	ref, err := LoadReference(productPath, clientPath)
	require.NoError(t, err)

	p, ok := ref.ProductsByISIN["US0378331005"]
	require.True(t, ok)
	assert.Equal(t, "HIGH", p.LiquidityKey, "liquidity_bucket accepted as alias for liq_rule_key")
	assert.Equal(t, p, ref.ProductsByCUSIP["037833100"])

	c, ok := ref.Clients["C-1"]
	require.True(t, ok)
	assert.Equal(t, "TIER1", c.RiskTier)
}
