package model

// Record is a schema-agnostic map from canonical field name to value.
// Values are string, int, float64, time-formatted string, or nil; absent
// keys and nil values both count as missing for mandatory checks.
type Record map[string]interface{}

// Clone returns a shallow copy. The engine never mutates an input record;
// annotated output records are built from clones.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValidatedRecord is a record plus its validation outcome.
type ValidatedRecord struct {
	Record          Record      `json:"record"`
	Breaches        []Breach    `json:"breaches,omitempty"`
	OverallSeverity *Severity   `json:"overall_severity,omitempty"`
	Disposition     Disposition `json:"disposition"`
}
