package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/illmade-knight/go-sentiment-flow/pkg/config"
	"github.com/illmade-knight/go-sentiment-flow/pkg/simulate"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	once := flag.Bool("once", false, "send a single event and exit")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "simulator").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	if err := cfg.ValidateSimulator(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	simulator, err := simulate.NewSimulator(simulate.Config{
		BackendURL: cfg.Simulator.BackendURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create simulator.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		if err := simulator.SendOne(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to send simulated event.")
		}
		return
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	simulator.Run(ctx, cfg.Simulator.Interval)
}
