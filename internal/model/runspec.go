package model

// Source is one inbound trade file for a run.
type Source struct {
	Type string `yaml:"type" json:"type"` // csv, json
	Path string `yaml:"path" json:"path"`
}

// Reference points at the master-data files used by enrichment.
type Reference struct {
	ProductMaster string `yaml:"product_master" json:"productMaster"`
	ClientMaster  string `yaml:"client_master" json:"clientMaster"`
}

// Validation configures the rule engine for a run. CatalogPath is optional;
// when empty the built-in catalog is used. FailSeverity is the lowest
// severity that fails a record (default HIGH).
type Validation struct {
	CatalogPath  string `yaml:"catalog_path,omitempty" json:"catalogPath,omitempty"`
	FailSeverity string `yaml:"fail_severity,omitempty" json:"failSeverity,omitempty"`
}

// Concurrency holds worker and timeout options for a run.
type Concurrency struct {
	Workers    int    `yaml:"workers,omitempty" json:"workers,omitempty"`
	RunTimeout string `yaml:"run_timeout,omitempty" json:"runTimeout,omitempty"` // e.g. "5m"
}

// Output defines where curated/exception/summary artifacts are written.
// Empty Dir disables file outputs (the store still records the run).
type Output struct {
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// RunSpec defines one validation run end to end. It is the payload of
// POST /api/v1/runs and the `run` section of the CLI config file.
type RunSpec struct {
	Sources     []Source    `yaml:"sources" json:"sources"`
	Reference   Reference   `yaml:"reference" json:"reference"`
	Validation  Validation  `yaml:"validation,omitempty" json:"validation,omitempty"`
	Concurrency Concurrency `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Output      Output      `yaml:"output,omitempty" json:"output,omitempty"`
}
