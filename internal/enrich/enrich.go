package enrich

import (
	"log/slog"

	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/pkg/utils"
)

// Liquidity bucket thresholds on notional, by instrument family.
const (
	bondHighNotional  = 5_000_000
	bondMedNotional   = 1_000_000
	derivHighNotional = 10_000_000
	derivMedNotional  = 2_000_000
)

// Enrich joins reference data onto ingested records and derives notional
// and liquidity_bucket. It returns new records; inputs are not mutated.
func Enrich(records []model.Record, ref *ReferenceData, logger *slog.Logger) []model.Record {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Starting enrichment", slog.Int("records", len(records)))

	out := make([]model.Record, len(records))
	for i, rec := range records {
		enriched := rec.Clone()
		enrichProduct(enriched, ref)
		enrichClient(enriched, ref)
		deriveNotional(enriched)
		fillLiquidityBucket(enriched)
		out[i] = enriched
	}

	logger.Info("Enrichment completed")
	return out
}

// enrichProduct fills symbol, instrument_type and the liquidity rule key
// from the product master, joining on isin first and falling back to
// cusip. Values already on the record win over reference values.
func enrichProduct(rec model.Record, ref *ReferenceData) {
	var product Product
	var found bool
	if isin, ok := rec["isin"].(string); ok {
		product, found = ref.ProductsByISIN[isin]
	}
	if !found {
		if cusip, ok := rec["cusip"].(string); ok {
			product, found = ref.ProductsByCUSIP[cusip]
		}
	}
	if !found {
		return
	}

	if isMissing(rec, "symbol") && product.Symbol != "" {
		rec["symbol"] = product.Symbol
	}
	if isMissing(rec, "instrument_type") && product.InstrumentType != "" {
		rec["instrument_type"] = product.InstrumentType
	}
	if isMissing(rec, "liquidity_bucket") && product.LiquidityKey != "" {
		rec["liquidity_bucket"] = product.LiquidityKey
	}
}

func enrichClient(rec model.Record, ref *ReferenceData) {
	clientID, ok := rec["client_id"].(string)
	if !ok {
		return
	}
	client, found := ref.Clients[clientID]
	if !found {
		return
	}
	if isMissing(rec, "risk_tier") && client.RiskTier != "" {
		rec["risk_tier"] = client.RiskTier
	}
	if isMissing(rec, "region") && client.Region != "" {
		rec["region"] = client.Region
	}
}

// deriveNotional computes quantity*price when the feed did not supply a
// notional. Feed-supplied values are kept as-is so the validation
// tolerance rule can check them against the recomputed product.
func deriveNotional(rec model.Record) {
	if !isMissing(rec, "notional") {
		return
	}
	if isMissing(rec, "quantity") || isMissing(rec, "price") {
		return
	}
	rec["notional"] = utils.Numeric(rec["quantity"]) * utils.Numeric(rec["price"])
}

// fillLiquidityBucket assigns HIGH/MED/LOW from instrument type and
// notional when neither the feed nor the product master provided one.
func fillLiquidityBucket(rec model.Record) {
	if !isMissing(rec, "liquidity_bucket") {
		return
	}
	instrument, ok := rec["instrument_type"].(string)
	if !ok || isMissing(rec, "notional") {
		return
	}
	notional := utils.Numeric(rec["notional"])

	switch instrument {
	case "BOND":
		rec["liquidity_bucket"] = bucketFor(notional, bondHighNotional, bondMedNotional)
	case "SWAP", "FUTURE", "OPTION", "REPO":
		rec["liquidity_bucket"] = bucketFor(notional, derivHighNotional, derivMedNotional)
	}
}

func bucketFor(notional, high, med float64) string {
	switch {
	case notional >= high:
		return "HIGH"
	case notional >= med:
		return "MED"
	default:
		return "LOW"
	}
}

func isMissing(rec model.Record, field string) bool {
	v, ok := rec[field]
	return !ok || v == nil
}
