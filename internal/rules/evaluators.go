package rules

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"trade-surveillance-etl/internal/model"
)

// Evaluator is a pure per-record check: (record view, rule) -> breaches.
// Implementations never mutate the record and never return an error; a
// value that cannot be coerced is itself a breach of the rule's family.
type Evaluator interface {
	Evaluate(v View, def model.RuleDef) []model.Breach
}

func newBreach(def model.RuleDef, message string) model.Breach {
	return model.Breach{
		RuleID:   def.ID,
		Message:  message,
		Severity: def.Severity,
	}
}

// mandatoryEvaluator emits one breach per missing field, not one per
// record, so the summary's breach_count reflects every gap.
type mandatoryEvaluator struct{}

func (mandatoryEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	var breaches []model.Breach
	for _, field := range def.Params.Fields {
		if v.IsMissing(field) {
			breaches = append(breaches, newBreach(def, fmt.Sprintf("mandatory field %s is missing or null", field)))
		}
	}
	return breaches
}

// enumEvaluator checks set membership. Matching is case-sensitive; a
// missing value is left to the MANDATORY rule.
type enumEvaluator struct{}

func (enumEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	val, err := v.String(def.Params.Field)
	if err != nil {
		return nil
	}
	for _, allowed := range def.Params.Allowed {
		if val == allowed {
			return nil
		}
	}
	return []model.Breach{newBreach(def, fmt.Sprintf("%s=%q is not in allowed values %v", def.Params.Field, val, def.Params.Allowed))}
}

// positiveEvaluator requires strictly positive numbers; zero fails. A
// non-numeric value is reported as a breach of this rule.
type positiveEvaluator struct{}

func (positiveEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	var breaches []model.Breach
	for _, field := range def.Params.Fields {
		n, err := v.Number(field)
		switch {
		case errors.Is(err, ErrMissing):
			// MANDATORY covers absence.
		case err != nil:
			breaches = append(breaches, newBreach(def, fmt.Sprintf("%s is not numeric", field)))
		case n <= 0:
			breaches = append(breaches, newBreach(def, fmt.Sprintf("%s=%v must be > 0", field, n)))
		}
	}
	return breaches
}

var (
	isinPattern  = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	cusipPattern = regexp.MustCompile(`^[A-Z0-9]{9}$`)
)

// idFormatEvaluator validates instrument identifiers. Fields named isin or
// cusip are held to their own scheme; any other identifier field has its
// scheme inferred from length (12 -> ISIN, 9 -> CUSIP).
type idFormatEvaluator struct{}

func (idFormatEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	var breaches []model.Breach
	for _, field := range def.Params.IDFields {
		val, err := v.String(field)
		if err != nil {
			continue
		}
		var ok bool
		switch {
		case field == "isin":
			ok = isinPattern.MatchString(val)
		case field == "cusip":
			ok = cusipPattern.MatchString(val)
		case len(val) == 12:
			ok = isinPattern.MatchString(val)
		case len(val) == 9:
			ok = cusipPattern.MatchString(val)
		}
		if !ok {
			breaches = append(breaches, newBreach(def, fmt.Sprintf("%s=%q is not a valid ISIN/CUSIP", field, val)))
		}
	}
	return breaches
}

// tsSanityEvaluator fails when trade_ts falls on an earlier day than
// trade_date. Equal days pass; comparison is at date granularity in UTC.
type tsSanityEvaluator struct{}

func (tsSanityEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	ts, tsErr := v.Time("trade_ts")
	date, dateErr := v.Time("trade_date")

	var breaches []model.Breach
	if tsErr != nil && !errors.Is(tsErr, ErrMissing) {
		breaches = append(breaches, newBreach(def, "trade_ts is not a valid timestamp"))
	}
	if dateErr != nil && !errors.Is(dateErr, ErrMissing) {
		breaches = append(breaches, newBreach(def, "trade_date is not a valid date"))
	}
	if tsErr != nil || dateErr != nil {
		return breaches
	}

	tsDay := ts.Truncate(24 * time.Hour)
	dateDay := date.Truncate(24 * time.Hour)
	if tsDay.Before(dateDay) {
		breaches = append(breaches, newBreach(def, fmt.Sprintf(
			"trade_ts %s is before trade_date %s", ts.Format("2006-01-02T15:04:05Z"), date.Format("2006-01-02"))))
	}
	return breaches
}

// notionalEvaluator checks |notional - quantity*price| against a relative
// tolerance, falling back to an absolute tolerance when quantity*price is
// zero so the comparison never divides by zero.
type notionalEvaluator struct{}

func (notionalEvaluator) Evaluate(v View, def model.RuleDef) []model.Breach {
	tolerance := def.Params.Tolerance
	if tolerance == 0 {
		tolerance = 0.01
	}
	absTolerance := def.Params.AbsTolerance
	if absTolerance == 0 {
		absTolerance = 0.01
	}

	qty, qtyErr := v.Number("quantity")
	price, priceErr := v.Number("price")
	notional, notionalErr := v.Number("notional")

	var breaches []model.Breach
	coercions := []struct {
		field string
		err   error
	}{{"quantity", qtyErr}, {"price", priceErr}, {"notional", notionalErr}}
	for _, c := range coercions {
		if c.err != nil && !errors.Is(c.err, ErrMissing) {
			breaches = append(breaches, newBreach(def, fmt.Sprintf("%s is not numeric", c.field)))
		}
	}
	if qtyErr != nil || priceErr != nil || notionalErr != nil {
		return breaches
	}

	base := qty * price
	if base == 0 {
		if math.Abs(notional) > absTolerance {
			breaches = append(breaches, newBreach(def, fmt.Sprintf(
				"notional=%v differs from quantity*price=0 beyond absolute tolerance %v", notional, absTolerance)))
		}
		return breaches
	}

	rel := math.Abs(notional-base) / math.Max(1, math.Abs(base))
	if rel > tolerance {
		breaches = append(breaches, newBreach(def, fmt.Sprintf(
			"notional=%v differs from quantity*price=%v by %.4f (tolerance %v)", notional, base, rel, tolerance)))
	}
	return breaches
}
