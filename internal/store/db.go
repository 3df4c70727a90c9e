package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trade-surveillance-etl/internal/model"
)

var db *sql.DB

// InitDB opens the sqlite database and creates the run tables.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	summaryTable := `
	CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT PRIMARY KEY,
		input_rows INTEGER,
		passed_rows INTEGER,
		failed_rows INTEGER,
		pass_rate_pct REAL,
		breach_count INTEGER,
		run_ts_utc TEXT
	);
	`
	breachTable := `
	CREATE TABLE IF NOT EXISTS breaches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		rule_id TEXT,
		record_id TEXT,
		severity TEXT,
		message TEXT,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, summaryTable, breachTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a new validation run in pending state.
func SaveRun(runID string, spec model.RunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's lifecycle status.
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records a fatal run error.
func SaveRunError(runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), now)
	return err
}

// SaveSummary persists the finalized run summary.
func SaveSummary(runID string, s model.RunSummary) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO run_summaries
		(run_id, input_rows, passed_rows, failed_rows, pass_rate_pct, breach_count, run_ts_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, s.InputRows, s.PassedRows, s.FailedRows, s.PassRatePct, s.BreachCount, s.RunTSUTC)
	return err
}

// SaveBreaches batch-inserts a run's breaches inside one transaction.
func SaveBreaches(runID string, records []model.ValidatedRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO breaches (run_id, rule_id, record_id, severity, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, vr := range records {
		for _, b := range vr.Breaches {
			if _, err := stmt.Exec(runID, b.RuleID, b.RecordID, b.Severity.String(), b.Message, now); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

// GetRun fetches a run's spec and status.
func GetRun(runID string) (map[string]interface{}, error) {
	var specJSON, status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.RunSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// ListRuns returns all runs, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetSummary fetches the persisted summary of a run.
func GetSummary(runID string) (*model.RunSummary, error) {
	var s model.RunSummary
	err := db.QueryRow(`SELECT input_rows, passed_rows, failed_rows, pass_rate_pct, breach_count, run_ts_utc
		FROM run_summaries WHERE run_id = ?`, runID).
		Scan(&s.InputRows, &s.PassedRows, &s.FailedRows, &s.PassRatePct, &s.BreachCount, &s.RunTSUTC)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetBreaches returns up to limit breaches for a run.
func GetBreaches(runID string, limit int) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT rule_id, record_id, severity, message FROM breaches
		WHERE run_id = ? ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaches []map[string]interface{}
	for rows.Next() {
		var ruleID, recordID, severity, message string
		if err := rows.Scan(&ruleID, &recordID, &severity, &message); err != nil {
			return nil, err
		}
		breaches = append(breaches, map[string]interface{}{
			"rule_id":   ruleID,
			"record_id": recordID,
			"severity":  severity,
			"message":   message,
		})
	}
	return breaches, rows.Err()
}

// GetRunErrors returns recorded errors for a run.
func GetRunErrors(runID string) ([]string, error) {
	rows, err := db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		errs = append(errs, msg)
	}
	return errs, rows.Err()
}
