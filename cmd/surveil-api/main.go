package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"trade-surveillance-etl/internal/api"
	"trade-surveillance-etl/internal/metrics"
	"trade-surveillance-etl/internal/store"
)

func main() {
	listenAddr := flag.String("listen", ":8080", "listen address")
	dbPath := flag.String("db", "surveillance.db", "sqlite database path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := store.InitDB(*dbPath); err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(logger, metrics.NewCollector())
	logger.Info("Server started", slog.String("addr", *listenAddr))
	if err := http.ListenAndServe(*listenAddr, router); err != nil {
		logger.Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
