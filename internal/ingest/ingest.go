package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/pkg/utils"
)

// Ingest reads every configured source in parallel and returns the merged
// canonical record set. Per-row parse problems are logged and skipped;
// only an unreadable source fails the stage.
func Ingest(ctx context.Context, sources []model.Source, logger *slog.Logger) ([]model.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	recordsCh := make(chan model.Record, 256)
	errCh := make(chan error, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(s model.Source) {
			defer wg.Done()
			if err := ingestSource(ctx, s, recordsCh, logger); err != nil {
				errCh <- err
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(recordsCh)
		close(errCh)
	}()

	var records []model.Record
	for rec := range recordsCh {
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return records, nil
}

func ingestSource(ctx context.Context, src model.Source, out chan<- model.Record, logger *slog.Logger) error {
	logger.Info("Starting ingestion", slog.String("path", src.Path), slog.String("type", src.Type))

	switch strings.ToLower(src.Type) {
	case "csv":
		return ingestCSV(ctx, src.Path, out, logger)
	case "json":
		return ingestJSON(ctx, src.Path, out)
	default:
		return fmt.Errorf("unknown source type: %s", src.Type)
	}
}

func ingestCSV(ctx context.Context, path string, out chan<- model.Record, logger *slog.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		headers[i] = strings.ReplaceAll(h, `"`, "")
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			logger.Info("CSV ingestion done", slog.Int("records", count), slog.String("path", path))
			return nil
		} else if err != nil {
			logger.Warn("Skipping unreadable CSV row", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		rec := make(model.Record, len(headers))
		for i, h := range headers {
			if i >= len(row) {
				rec[h] = nil
				continue
			}
			rec[h] = utils.ParseValue(row[i])
		}
		normalizeRecord(rec)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- rec:
			count++
		}
	}
}

func ingestJSON(ctx context.Context, path string, out chan<- model.Record) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, row := range rows {
		rec := make(model.Record, len(row))
		for k, v := range row {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				rec[strings.TrimSpace(k)] = nil
				continue
			}
			rec[strings.TrimSpace(k)] = v
		}
		normalizeRecord(rec)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- rec:
		}
	}
	return nil
}

// normalizeRecord applies the side-normalization map in place during
// canonicalization; records are immutable from validation onward.
func normalizeRecord(rec model.Record) {
	if raw, ok := rec["side"].(string); ok {
		rec["side"] = NormalizeSide(raw)
	}
}
