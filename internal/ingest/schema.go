package ingest

// Canonical trade schema. Every inbound record is mapped onto this shape
// before enrichment and validation reference it.

// CanonicalOrder is the column order of curated output files.
var CanonicalOrder = []string{
	"trade_id", "order_id", "client_id",
	"isin", "cusip", "symbol",
	"side", "quantity", "price",
	"trade_date", "trade_ts",
	"currency", "venue", "instrument_type",
	"liquidity_bucket", "desk", "source_system",
	"risk_tier", "region", "notional",
}

// sideNormalization repairs known typos and spacing variants before
// validation sees the value.
var sideNormalization = map[string]string{
	"BUY":  "BUY",
	"BUY ": "BUY",
	"SEL":  "SELL",
	"SELL": "SELL",
}

// NormalizeSide maps a raw side value to its canonical form, passing
// unknown values through untouched for the enum rule to flag.
func NormalizeSide(raw string) string {
	if norm, ok := sideNormalization[raw]; ok {
		return norm
	}
	return raw
}
