package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-sentiment-flow/pkg/config"
	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/illmade-knight/go-sentiment-flow/pkg/microservice"
	"github.com/illmade-knight/go-sentiment-flow/pkg/relay"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "relay").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	if err := cfg.ValidateRelay(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Pub/Sub client.")
	}
	defer func() { _ = pubsubClient.Close() }()

	publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, pubsubClient, cfg.Buffer.TopicID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create streaming-buffer publisher.")
	}

	handler, err := relay.NewHandler(publisher, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create relay handler.")
	}

	server := microservice.NewBaseServer(logger, cfg.HTTPPort)
	handler.Register(server.Mux())

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start HTTP server.")
	}
	logger.Info().Str("port", server.GetHTTPPort()).Msg("Relay service started.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed.")
	}
	if err := publisher.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Publisher shutdown failed.")
	}
}
