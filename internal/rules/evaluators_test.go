package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-surveillance-etl/internal/model"
)

func ruleFor(t *testing.T, id string) model.RuleDef {
	t.Helper()
	for _, def := range Default().Rules() {
		if def.ID == id {
			return def
		}
	}
	t.Fatalf("rule %s not in default catalog", id)
	return model.RuleDef{}
}

func completeRecord() model.Record {
	return model.Record{
		"trade_id":        "T-1001",
		"order_id":        "O-2001",
		"client_id":       "C-3001",
		"side":            "BUY",
		"quantity":        100,
		"price":           10.0,
		"notional":        1000.0,
		"trade_date":      "2024-03-15",
		"trade_ts":        "2024-03-15T10:00:00Z",
		"currency":        "USD",
		"instrument_type": "BOND",
		"isin":            "US0378331005",
	}
}

func TestMandatoryOneBreachPerMissingField(t *testing.T) {
	def := ruleFor(t, "R001_MANDATORY")

	rec := completeRecord()
	delete(rec, "order_id") // absent
	rec["client_id"] = nil  // present but null

	breaches := mandatoryEvaluator{}.Evaluate(NewView(rec), def)
	require.Len(t, breaches, 2)
	for _, b := range breaches {
		assert.Equal(t, "R001_MANDATORY", b.RuleID)
		assert.Equal(t, model.SeverityCritical, b.Severity)
	}

	assert.Empty(t, mandatoryEvaluator{}.Evaluate(NewView(completeRecord()), def))
}

func TestEnumCaseSensitive(t *testing.T) {
	def := ruleFor(t, "R002_ENUM_SIDE")

	tests := []struct {
		name   string
		side   interface{}
		breach bool
	}{
		{"exact match passes", "BUY", false},
		{"lowercase fails", "buy", true},
		{"unknown value fails", "SHORT", true},
		{"missing left to mandatory rule", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec["side"] = tt.side
			breaches := enumEvaluator{}.Evaluate(NewView(rec), def)
			if tt.breach {
				require.Len(t, breaches, 1)
				assert.Equal(t, model.SeverityHigh, breaches[0].Severity)
			} else {
				assert.Empty(t, breaches)
			}
		})
	}
}

func TestPositiveStrictlyGreaterThanZero(t *testing.T) {
	def := ruleFor(t, "R003_POSITIVE")

	tests := []struct {
		name     string
		quantity interface{}
		breaches int
	}{
		{"positive passes", 100, 0},
		{"zero is a failure, not a boundary pass", 0, 1},
		{"negative fails", -5, 1},
		{"non-numeric is a format breach", "lots", 1},
		{"missing left to mandatory rule", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec["quantity"] = tt.quantity
			breaches := positiveEvaluator{}.Evaluate(NewView(rec), def)
			assert.Len(t, breaches, tt.breaches)
		})
	}
}

func TestIDFormat(t *testing.T) {
	def := ruleFor(t, "R004_ID_FORMAT")

	tests := []struct {
		name    string
		isin    interface{}
		cusip   interface{}
		breachN int
	}{
		{"valid ISIN", "US0378331005", nil, 0},
		{"valid CUSIP", nil, "037833100", 0},
		{"lowercase ISIN fails", "us0378331005", nil, 1},
		{"short ISIN fails", "US03783310", nil, 1},
		{"CUSIP wrong length fails", nil, "03783310", 1},
		{"both invalid gives two breaches", "BAD", "x", 2},
		{"both missing gives none", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec["isin"] = tt.isin
			rec["cusip"] = tt.cusip
			breaches := idFormatEvaluator{}.Evaluate(NewView(rec), def)
			assert.Len(t, breaches, tt.breachN)
		})
	}
}

func TestIDFormatSchemeInference(t *testing.T) {
	def := model.RuleDef{
		ID: "R104", Family: model.FamilyIDFormat, Severity: model.SeverityMedium,
		Params: model.RuleParams{IDFields: []string{"instrument_id"}},
	}

	tests := []struct {
		name   string
		id     string
		breach bool
	}{
		{"12 chars inferred as ISIN", "US0378331005", false},
		{"9 chars inferred as CUSIP", "037833100", false},
		{"odd length always fails", "ABC123", true},
		{"12 chars failing ISIN shape", "123456789012", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := model.Record{"instrument_id": tt.id}
			breaches := idFormatEvaluator{}.Evaluate(NewView(rec), def)
			if tt.breach {
				assert.Len(t, breaches, 1)
			} else {
				assert.Empty(t, breaches)
			}
		})
	}
}

func TestTSSanityDateGranularity(t *testing.T) {
	def := ruleFor(t, "R005_TS_SANITY")

	tests := []struct {
		name   string
		ts     interface{}
		date   interface{}
		breach bool
	}{
		{"one second before midnight breaches", "2024-03-14T23:59:59Z", "2024-03-15", true},
		{"exactly start of day passes", "2024-03-15T00:00:00Z", "2024-03-15", false},
		{"later same day passes", "2024-03-15T16:00:00Z", "2024-03-15", false},
		{"day after passes", "2024-03-16T00:00:00Z", "2024-03-15", false},
		{"unparseable timestamp is a breach", "yesterday", "2024-03-15", true},
		{"missing date skips", "2024-03-15T10:00:00Z", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec["trade_ts"] = tt.ts
			rec["trade_date"] = tt.date
			breaches := tsSanityEvaluator{}.Evaluate(NewView(rec), def)
			if tt.breach {
				require.Len(t, breaches, 1)
				assert.Equal(t, model.SeverityMedium, breaches[0].Severity)
			} else {
				assert.Empty(t, breaches)
			}
		})
	}
}

func TestNotionalToleranceBoundary(t *testing.T) {
	def := ruleFor(t, "R006_NOTIONAL")

	// quantity*price = 1000, relative tolerance 0.01.
	tests := []struct {
		name     string
		notional interface{}
		breach   bool
	}{
		{"exact product passes", 1000.0, false},
		{"high edge exactly at tolerance passes", 1010.0, false},
		{"just beyond high edge fails", 1010.5, true},
		{"low edge exactly at tolerance passes", 990.0, false},
		{"just beyond low edge fails", 989.5, true},
		{"non-numeric notional is a breach", "about a thousand", true},
		{"missing notional skips", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec["notional"] = tt.notional
			breaches := notionalEvaluator{}.Evaluate(NewView(rec), def)
			if tt.breach {
				require.Len(t, breaches, 1)
				assert.Equal(t, model.SeverityLow, breaches[0].Severity)
			} else {
				assert.Empty(t, breaches)
			}
		})
	}
}

func TestNotionalZeroBaseFallsBackToAbsolute(t *testing.T) {
	def := ruleFor(t, "R006_NOTIONAL")

	rec := completeRecord()
	rec["quantity"] = 0
	rec["price"] = 10.0

	rec["notional"] = 0.0
	assert.Empty(t, notionalEvaluator{}.Evaluate(NewView(rec), def))

	rec["notional"] = 0.5
	assert.Len(t, notionalEvaluator{}.Evaluate(NewView(rec), def), 1)
}
