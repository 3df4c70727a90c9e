package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"trade-surveillance-etl/internal/config"
	"trade-surveillance-etl/internal/metrics"
	"trade-surveillance-etl/internal/pipeline"
	"trade-surveillance-etl/internal/store"
)

func main() {
	configPath := flag.String("config", "surveil.yaml", "path to run configuration")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := store.InitDB(cfg.DBPath); err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, cfg.Run); err != nil {
		logger.Error("Failed to save run", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner := pipeline.NewRunner(logger, metrics.NewCollector())
	if err := runner.Run(context.Background(), runID, cfg.Run); err != nil {
		os.Exit(1)
	}
}
