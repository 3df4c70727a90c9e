package validation

import (
	"fmt"

	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/internal/rules"
)

// Policy decides disposition from aggregated severities. FailSeverity is
// the lowest severity that fails a record on its own; anything below it
// stays curated with annotations preserved for audit.
type Policy struct {
	FailSeverity model.Severity
}

// DefaultPolicy fails records on HIGH or CRITICAL breaches only.
func DefaultPolicy() Policy {
	return Policy{FailSeverity: model.SeverityHigh}
}

// aggregate resolves one record's collected breaches into an annotated
// output record: worst-case severity, disposition, breaches stamped with
// the record's identity. The input record itself is never touched.
func aggregate(rec model.Record, index int, breaches []model.Breach, policy Policy) model.ValidatedRecord {
	recordID := recordIdentity(rec, index)

	out := model.ValidatedRecord{
		Record:      rec.Clone(),
		Disposition: model.DispositionPass,
	}
	if len(breaches) == 0 {
		return out
	}

	worst := breaches[0].Severity
	stamped := make([]model.Breach, len(breaches))
	for i, b := range breaches {
		b.RecordID = recordID
		stamped[i] = b
		if b.Severity > worst {
			worst = b.Severity
		}
	}

	out.Breaches = stamped
	out.OverallSeverity = &worst
	if worst >= policy.FailSeverity {
		out.Disposition = model.DispositionFail
	}
	return out
}

// recordIdentity prefers the business key; synthetic row identity keeps
// breaches attributable when trade_id itself is the missing field.
func recordIdentity(rec model.Record, index int) string {
	v := rules.NewView(rec)
	if id, err := v.String("trade_id"); err == nil {
		return id
	}
	return fmt.Sprintf("row-%d", index)
}
