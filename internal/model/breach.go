package model

import (
	"math"
	"time"
)

// Breach is one detected violation of one rule against one record.
type Breach struct {
	RuleID   string   `json:"rule_id"`
	RecordID string   `json:"record_id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Disposition is the PASS/FAIL classification derived from a record's
// aggregated breach severities.
type Disposition string

const (
	DispositionPass Disposition = "PASS"
	DispositionFail Disposition = "FAIL"
)

// RunSummary is computed once per batch and never mutated after
// finalization.
type RunSummary struct {
	InputRows   int     `json:"input_rows"`
	PassedRows  int     `json:"passed_rows"`
	FailedRows  int     `json:"failed_rows"`
	PassRatePct float64 `json:"pass_rate_pct"`
	BreachCount int     `json:"breach_count"`
	RunTSUTC    string  `json:"run_ts_utc"`
}

// NewRunSummary finalizes a summary for a completed run. The pass rate is
// rounded to two decimal places and the timestamp is ISO-8601 UTC with a
// trailing Z.
func NewRunSummary(inputRows, passedRows, failedRows, breachCount int, now time.Time) RunSummary {
	rate := 0.0
	if inputRows > 0 {
		rate = math.Round(10000.0*float64(passedRows)/float64(inputRows)) / 100.0
	}
	return RunSummary{
		InputRows:   inputRows,
		PassedRows:  passedRows,
		FailedRows:  failedRows,
		PassRatePct: rate,
		BreachCount: breachCount,
		RunTSUTC:    now.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
