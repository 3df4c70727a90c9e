package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Severity is the ordinal importance of a breach. The ordering
// CRITICAL > HIGH > MEDIUM > LOW is the integer ordering of the constants,
// so worst-case aggregation is a plain max.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "LOW",
	SeverityMedium:   "MEDIUM",
	SeverityHigh:     "HIGH",
	SeverityCritical: "CRITICAL",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// ParseSeverity maps a severity name to its ordinal value.
func ParseSeverity(name string) (Severity, error) {
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity: %q", name)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("severity must be a JSON string, got %s", data)
	}
	sev, err := ParseSeverity(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	sev, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Family identifies which evaluator a rule dispatches to.
type Family string

const (
	FamilyMandatory Family = "MANDATORY"
	FamilyEnum      Family = "ENUM"
	FamilyPositive  Family = "POSITIVE"
	FamilyIDFormat  Family = "ID_FORMAT"
	FamilyTSSanity  Family = "TS_SANITY"
	FamilyNotional  Family = "NOTIONAL"
	FamilyDuplicate Family = "DUPLICATE"
)

// RuleParams carries family-specific configuration. Only the fields the
// rule's family reads are meaningful; the catalog validates the required
// ones are present at load time.
type RuleParams struct {
	Fields       []string `yaml:"fields,omitempty" json:"fields,omitempty"`               // MANDATORY, POSITIVE
	Field        string   `yaml:"field,omitempty" json:"field,omitempty"`                 // ENUM
	Allowed      []string `yaml:"allowed,omitempty" json:"allowed,omitempty"`             // ENUM
	IDFields     []string `yaml:"id_fields,omitempty" json:"id_fields,omitempty"`         // ID_FORMAT
	Tolerance    float64  `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`         // NOTIONAL, relative
	AbsTolerance float64  `yaml:"abs_tolerance,omitempty" json:"abs_tolerance,omitempty"` // NOTIONAL, zero-base fallback
}

// RuleDef is one entry of the rule catalog. Catalog order determines
// breach-listing order; disposition uses severity only.
type RuleDef struct {
	ID          string     `yaml:"id" json:"id"`
	Family      Family     `yaml:"family" json:"family"`
	Severity    Severity   `yaml:"severity" json:"severity"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Params      RuleParams `yaml:"params,omitempty" json:"params,omitempty"`
}
