package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trade-surveillance-etl/internal/enrich"
	"trade-surveillance-etl/internal/ingest"
	"trade-surveillance-etl/internal/metrics"
	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/internal/rules"
	"trade-surveillance-etl/internal/store"
	"trade-surveillance-etl/internal/validation"
	"trade-surveillance-etl/pkg/utils"
)

// Runner executes validation runs end to end: ingest, enrich, validate,
// write outcome artifacts, persist the result.
type Runner struct {
	logger    *slog.Logger
	collector *metrics.Collector
}

func NewRunner(logger *slog.Logger, collector *metrics.Collector) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, collector: collector}
}

// Run executes one validation run. The run is a single pass with no
// retries; the only pre-flight failure is a malformed rule catalog.
func (r *Runner) Run(ctx context.Context, runID string, spec model.RunSpec) (runErr error) {
	start := time.Now()
	log := r.logger.With(slog.String("run_id", runID))
	log.Info("Starting validation run", slog.Int("sources", len(spec.Sources)))

	store.UpdateRunStatus(runID, "running")
	defer func() {
		if runErr != nil {
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, runErr)
			log.Error("Run failed", slog.String("error", runErr.Error()))
			if r.collector != nil {
				r.collector.RecordRun(time.Since(start), model.RunSummary{}, false)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, utils.ParseDuration(spec.Concurrency.RunTimeout))
	defer cancel()

	engine, err := r.buildEngine(spec)
	if err != nil {
		return fmt.Errorf("rule catalog configuration: %w", err)
	}

	store.UpdateRunStatus(runID, "ingesting")
	records, err := ingest.Ingest(ctx, spec.Sources, log)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	log.Info("Ingestion complete", slog.Int("records", len(records)))

	store.UpdateRunStatus(runID, "enriching")
	if spec.Reference.ProductMaster != "" || spec.Reference.ClientMaster != "" {
		ref, err := enrich.LoadReference(spec.Reference.ProductMaster, spec.Reference.ClientMaster)
		if err != nil {
			return fmt.Errorf("reference data: %w", err)
		}
		records = enrich.Enrich(records, ref, log)
	}

	store.UpdateRunStatus(runID, "validating")
	result, err := engine.Validate(ctx, records)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if spec.Output.Dir != "" {
		if err := r.writeOutputs(runID, spec.Output.Dir, result, log); err != nil {
			return err
		}
	}

	if err := store.SaveSummary(runID, result.Summary); err != nil {
		return fmt.Errorf("failed to persist summary: %w", err)
	}
	allRecords := append(append([]model.ValidatedRecord{}, result.Curated...), result.Exceptions...)
	if err := store.SaveBreaches(runID, allRecords); err != nil {
		return fmt.Errorf("failed to persist breaches: %w", err)
	}

	if r.collector != nil {
		r.collector.RecordRun(time.Since(start), result.Summary, true)
		r.collector.RecordBreaches(allRecords)
	}

	store.UpdateRunStatus(runID, "completed")
	log.Info("Run completed",
		slog.Int("passed", result.Summary.PassedRows),
		slog.Int("failed", result.Summary.FailedRows),
		slog.Float64("pass_rate_pct", result.Summary.PassRatePct),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Runner) buildEngine(spec model.RunSpec) (*validation.Engine, error) {
	catalog := rules.Default()
	if spec.Validation.CatalogPath != "" {
		loaded, err := rules.Load(spec.Validation.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	policy := validation.DefaultPolicy()
	if spec.Validation.FailSeverity != "" {
		sev, err := model.ParseSeverity(spec.Validation.FailSeverity)
		if err != nil {
			return nil, err
		}
		policy.FailSeverity = sev
	}

	return validation.NewEngine(catalog, policy, spec.Concurrency.Workers, r.logger)
}

func (r *Runner) writeOutputs(runID, dir string, result *validation.Result, log *slog.Logger) error {
	om := utils.NewOutputManager(dir)

	curatedPath, err := om.WriteCuratedCSV(runID, result.Curated, ingest.CanonicalOrder)
	if err != nil {
		return fmt.Errorf("failed to write curated output: %w", err)
	}
	exceptionsPath, err := om.WriteExceptionsJSONL(runID, result.Exceptions)
	if err != nil {
		return fmt.Errorf("failed to write exceptions output: %w", err)
	}
	summaryPath, err := om.WriteSummaryJSON(runID, result.Summary)
	if err != nil {
		return fmt.Errorf("failed to write summary output: %w", err)
	}

	log.Info("Outcome artifacts written",
		slog.String("curated", curatedPath),
		slog.String("exceptions", exceptionsPath),
		slog.String("summary", summaryPath))
	return nil
}
