package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-sentiment-flow/pkg/archive"
	"github.com/illmade-knight/go-sentiment-flow/pkg/cache"
	"github.com/illmade-knight/go-sentiment-flow/pkg/config"
	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/illmade-knight/go-sentiment-flow/pkg/microservice"
	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "analyzer").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	if err := cfg.ValidateAnalyzer(); err != nil {
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

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Cloud Storage client.")
	}
	defer func() { _ = storageClient.Close() }()

	classifier, cleanup, err := buildClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build classifier.")
	}
	defer cleanup()

	consumerCfg := messagepipeline.NewGooglePubsubConsumerDefaults(cfg.Buffer.SubscriptionID)
	consumer, err := messagepipeline.NewGooglePubsubConsumer(ctx, consumerCfg, pubsubClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Pub/Sub consumer.")
	}

	service, err := archive.NewArchiveService(
		messagepipeline.BatchingServiceConfig{
			NumWorkers:    5,
			BatchSize:     100,
			FlushInterval: time.Minute,
		},
		consumer,
		archive.NewGCSClientAdapter(storageClient),
		archive.GCSBatchUploaderConfig{
			BucketName:   cfg.Storage.Bucket,
			ObjectPrefix: cfg.Storage.Prefix,
		},
		classifier,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to assemble archive service.")
	}

	// Health and metrics only; the analyzer has no request surface.
	server := microservice.NewBaseServer(logger, cfg.HTTPPort)
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start HTTP server.")
	}

	if err := service.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start archive service.")
	}
	logger.Info().Msg("Analyzer service started.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := service.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Archive service shutdown failed.")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed.")
	}
}

// buildClassifier wires the chat classifier and wraps it with the configured
// verdict cache. The returned cleanup closes any cache-owned connections.
func buildClassifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (sentiment.Classifier, func(), error) {
	chatCfg := sentiment.NewChatClassifierDefaults()
	chatCfg.BaseURL = cfg.Classifier.BaseURL
	chatCfg.APIKey = cfg.Classifier.APIKey
	chatCfg.Model = cfg.Classifier.Model
	chatCfg.Timeout = cfg.Classifier.Timeout

	chat, err := sentiment.NewChatClassifier(chatCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	noop := func() {}

	switch cfg.Cache.Kind {
	case "", "none":
		return chat, noop, nil

	case "memory":
		lru, err := cache.NewLRUCache[string, sentiment.Verdict](cfg.Cache.LRUSize)
		if err != nil {
			return nil, nil, err
		}
		caching, err := sentiment.NewCachingClassifier(chat, lru, logger)
		return caching, noop, err

	case "redis":
		redisCache, err := cache.NewRedisCache[string, sentiment.Verdict](ctx, &cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			CacheTTL: cfg.Cache.RedisTTL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		caching, err := sentiment.NewCachingClassifier(chat, redisCache, logger)
		return caching, func() { _ = redisCache.Close() }, err

	case "firestore":
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, err
		}
		fsCache, err := cache.NewFirestoreCache[string, sentiment.Verdict](&cache.FirestoreConfig{
			ProjectID:      cfg.ProjectID,
			CollectionName: cfg.Cache.FirestoreCollection,
		}, fsClient, logger)
		if err != nil {
			_ = fsClient.Close()
			return nil, nil, err
		}
		caching, err := sentiment.NewCachingClassifier(chat, fsCache, logger)
		return caching, func() { _ = fsClient.Close() }, err

	default:
		return nil, nil, fmt.Errorf("unknown cache kind %q", cfg.Cache.Kind)
	}
}
