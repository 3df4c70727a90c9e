package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/internal/rules"
)

// Result is the engine's full output: both partitions plus the summary.
// Every input record appears in exactly one partition.
type Result struct {
	Curated    []model.ValidatedRecord `json:"curated"`
	Exceptions []model.ValidatedRecord `json:"exceptions"`
	Summary    model.RunSummary        `json:"summary"`
}

// Engine runs the rule catalog against a batch. Construction is the only
// place a run can fail on configuration; Validate itself never aborts on
// record content.
type Engine struct {
	catalog *rules.Catalog
	policy  Policy
	workers int
	logger  *slog.Logger
}

func NewEngine(catalog *rules.Catalog, policy Policy, workers int, logger *slog.Logger) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("rule catalog is required")
	}
	if policy.FailSeverity < model.SeverityLow || policy.FailSeverity > model.SeverityCritical {
		return nil, fmt.Errorf("invalid failing severity threshold: %d", policy.FailSeverity)
	}
	if workers <= 0 {
		workers = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, policy: policy, workers: workers, logger: logger}, nil
}

// Validate evaluates the batch in one pass: per-record rules sharded over
// the worker pool, then the batch-scoped duplicate rule, then aggregation
// into curated/exception partitions and the run summary. Records are
// evaluated independently; one record's content never affects another's
// evaluation.
func (e *Engine) Validate(ctx context.Context, records []model.Record) (*Result, error) {
	start := time.Now()
	e.logger.Info("Running validation",
		slog.Int("records", len(records)),
		slog.Int("workers", e.workers))

	perRecord, err := e.runPerRecordRules(ctx, records)
	if err != nil {
		return nil, err
	}

	// The duplicate rule needs the full batch in view before any
	// disposition is decided.
	for _, def := range e.catalog.Rules() {
		if def.Family != model.FamilyDuplicate {
			continue
		}
		for i, breaches := range rules.DetectDuplicates(records, def) {
			perRecord[i] = append(perRecord[i], breaches...)
		}
	}

	result := &Result{
		Curated:    make([]model.ValidatedRecord, 0, len(records)),
		Exceptions: make([]model.ValidatedRecord, 0),
	}
	breachCount := 0
	for i, rec := range records {
		vr := aggregate(rec, i, perRecord[i], e.policy)
		breachCount += len(vr.Breaches)
		if vr.Disposition == model.DispositionPass {
			result.Curated = append(result.Curated, vr)
		} else {
			result.Exceptions = append(result.Exceptions, vr)
		}
	}

	result.Summary = model.NewRunSummary(
		len(records), len(result.Curated), len(result.Exceptions), breachCount, time.Now())

	e.logger.Info("Validation complete",
		slog.Int("passed", result.Summary.PassedRows),
		slog.Int("failed", result.Summary.FailedRows),
		slog.Int("breaches", result.Summary.BreachCount),
		slog.Duration("elapsed", time.Since(start)))

	return result, nil
}

// runPerRecordRules shards record indices across the worker pool. Each
// worker keeps a local breach map merged after the pool drains, so the
// outcome is invariant to sharding order and no record is shared mutably
// across goroutines.
func (e *Engine) runPerRecordRules(ctx context.Context, records []model.Record) (map[int][]model.Breach, error) {
	indices := make(chan int, e.workers*2)
	locals := make([]map[int][]model.Breach, e.workers)

	var wg sync.WaitGroup
	wg.Add(e.workers)
	for w := 0; w < e.workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			local := make(map[int][]model.Breach)
			locals[workerID] = local

			for i := range indices {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if breaches := e.evaluateRecord(records[i]); len(breaches) > 0 {
					local[i] = breaches
				}
			}
		}(w)
	}

	for i := range records {
		select {
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return nil, ctx.Err()
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make(map[int][]model.Breach)
	for _, local := range locals {
		for i, breaches := range local {
			merged[i] = append(merged[i], breaches...)
		}
	}
	return merged, nil
}

// evaluateRecord runs every per-record rule in catalog order, so the
// breach-listing order per record follows the catalog.
func (e *Engine) evaluateRecord(rec model.Record) []model.Breach {
	v := rules.NewView(rec)
	var breaches []model.Breach
	for _, def := range e.catalog.Rules() {
		ev, ok := e.catalog.Evaluator(def)
		if !ok {
			continue // batch-scoped family, handled after the pool
		}
		breaches = append(breaches, ev.Evaluate(v, def)...)
	}
	return breaches
}
