package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/triagelink/wait-data-etl/internal/adapter/http"
	kafkaadapter "github.com/triagelink/wait-data-etl/internal/adapter/kafka"
	"github.com/triagelink/wait-data-etl/internal/config"
	"github.com/triagelink/wait-data-etl/internal/observability"
	"github.com/triagelink/wait-data-etl/internal/pipeline"
	"github.com/triagelink/wait-data-etl/internal/policy"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

func main() {
	// Local development convenience; an absent .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	strategy, err := policy.ParseStrategy(cfg.MissingStrategy)
	if err != nil {
		logger.Error("invalid missing-data strategy", "error", err)
		os.Exit(1)
	}

	// Reference tables are the contract with every downstream consumer; a
	// malformed table fails startup rather than producing drifted records.
	hospitalTable, err := refdata.LoadHospitalTable(cfg.HospitalTablePath)
	if err != nil {
		logger.Error("failed to load hospital table", "path", cfg.HospitalTablePath, "error", err)
		os.Exit(1)
	}
	resolver, err := refdata.NewResolver(hospitalTable)
	if err != nil {
		logger.Error("failed to build hospital resolver", "error", err)
		os.Exit(1)
	}

	triageTable, err := refdata.LoadTriageTable(cfg.TriageTablePath)
	if err != nil {
		logger.Error("failed to load triage table", "path", cfg.TriageTablePath, "error", err)
		os.Exit(1)
	}
	triage, err := refdata.NewTriageIndex(triageTable, resolver)
	if err != nil {
		logger.Error("failed to build triage index", "error", err)
		os.Exit(1)
	}

	metrics.HospitalsLoaded.Set(float64(resolver.Len()))
	metrics.TriageConditionsLoaded.Set(float64(len(triageTable.Conditions)))
	logger.Info("reference tables loaded",
		"hospitals", resolver.Len(),
		"triage_conditions", len(triageTable.Conditions),
		"strategy", strategy,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(resolver, triage, cfg.Location())

	p := pipeline.New(reader, transformer, writer, strategy, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, resolver, triage, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
