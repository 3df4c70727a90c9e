package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"trade-surveillance-etl/internal/model"
)

// OutputManager organizes a run's outcome artifacts under
// <base>/<runID>/{curated,exceptions,metrics}.
type OutputManager struct {
	BaseOutputDir string
}

func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{BaseOutputDir: baseOutputDir}
}

func (om *OutputManager) runDir(runID, sub string) (string, error) {
	dir := filepath.Join(om.BaseOutputDir, runID, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

// WriteCuratedCSV writes the accepted partition as a CSV with the given
// column order. Missing fields are written as empty cells.
func (om *OutputManager) WriteCuratedCSV(runID string, records []model.ValidatedRecord, columns []string) (string, error) {
	dir, err := om.runDir(runID, "curated")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "curated_trades.csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create curated file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, vr := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := vr.Record[col]; ok && v != nil {
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return path, w.Error()
}

// WriteExceptionsJSONL writes the rejected partition, one annotated record
// per line with its full breach list.
func (om *OutputManager) WriteExceptionsJSONL(runID string, records []model.ValidatedRecord) (string, error) {
	dir, err := om.runDir(runID, "exceptions")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "validation_breaches.jsonl")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create exceptions file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, vr := range records {
		if err := enc.Encode(vr); err != nil {
			return "", fmt.Errorf("failed to encode exception record: %w", err)
		}
	}
	return path, nil
}

// WriteSummaryJSON writes the run summary.
func (om *OutputManager) WriteSummaryJSON(runID string, summary model.RunSummary) (string, error) {
	dir, err := om.runDir(runID, "metrics")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "validation_metrics.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}
