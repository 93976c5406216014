package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-sentiment-flow/pkg/config"
	"github.com/illmade-knight/go-sentiment-flow/pkg/insights"
	"github.com/illmade-knight/go-sentiment-flow/pkg/microservice"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "insights").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	if err := cfg.ValidateInsights(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Cloud Storage client.")
	}
	defer func() { _ = storageClient.Close() }()

	scanner, err := insights.NewScanner(
		insights.NewGCSStoreAdapter(storageClient, cfg.Storage.Bucket),
		insights.ScannerConfig{Prefix: cfg.Storage.Prefix},
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create scanner.")
	}

	var sink insights.AggregateSink
	if cfg.BigQuery.DatasetID != "" {
		bqClient, err := insights.NewProductionBigQueryClient(ctx, cfg.ProjectID, cfg.BigQuery.CredentialsFile, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create BigQuery client.")
		}
		defer func() { _ = bqClient.Close() }()

		sink, err = insights.NewBigQuerySink(ctx, bqClient, &insights.BigQueryDatasetConfig{
			DatasetID: cfg.BigQuery.DatasetID,
			TableID:   cfg.BigQuery.TableID,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create BigQuery sink.")
		}
	}

	server := microservice.NewBaseServer(logger, cfg.HTTPPort)
	insights.NewHandler(scanner, sink, 2*time.Minute, logger).Register(server.Mux())

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start HTTP server.")
	}
	logger.Info().Str("port", server.GetHTTPPort()).Msg("Insights service started.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed.")
	}
}
