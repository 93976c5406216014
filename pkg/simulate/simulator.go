// Package simulate generates synthetic chat-platform message events and posts
// them to the relay endpoint, exercising the pipeline end to end.
package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

// Default candidate sets for generated events.
var (
	DefaultUsers    = []string{"U12345", "U67890", "U11111", "U22222"}
	DefaultChannels = []string{"C54321", "C98765", "C19283"}
	DefaultTexts    = []string{
		"Hello there!",
		"How's it going?",
		"Did you see the latest update?",
		"Can you help with this task?",
		"Reminder: Check the report",
		"Please confirm your availability",
		"Looking forward to the meeting!",
	}
)

// Config holds configuration for the event simulator.
type Config struct {
	// BackendURL is the relay endpoint events are posted to. Required.
	BackendURL string
	// Users, Channels and Texts are the candidate sets events are drawn from.
	// Empty slices fall back to the defaults.
	Users    []string
	Channels []string
	Texts    []string
	// RequestTimeout bounds a single post.
	RequestTimeout time.Duration
}

// Simulator produces synthetic message events. A delivery failure is logged
// and absorbed; the invoking scheduler retries at its own cadence.
type Simulator struct {
	cfg    Config
	client *http.Client
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewSimulator validates the config and returns a ready Simulator.
func NewSimulator(cfg Config, logger zerolog.Logger) (*Simulator, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if len(cfg.Users) == 0 {
		cfg.Users = DefaultUsers
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels
	}
	if len(cfg.Texts) == 0 {
		cfg.Texts = DefaultTexts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With().Str("component", "Simulator").Logger(),
	}, nil
}

// GenerateEvent builds one random message event stamped with the current
// wall-clock epoch time.
func (s *Simulator) GenerateEvent() sentiment.MessageEvent {
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	return sentiment.MessageEvent{
		Type:    "message",
		User:    s.cfg.Users[s.rng.Intn(len(s.cfg.Users))],
		Channel: s.cfg.Channels[s.rng.Intn(len(s.cfg.Channels))],
		Text:    s.cfg.Texts[s.rng.Intn(len(s.cfg.Texts))],
		Ts:      strconv.FormatFloat(now, 'f', 6, 64),
	}
}

// SendOne generates a single event, wraps it in the platform envelope, and
// posts it to the backend. Non-200 responses and transport errors are returned
// for the caller to log; neither is fatal.
func (s *Simulator) SendOne(ctx context.Context) error {
	event := s.GenerateEvent()

	body, err := json.Marshal(map[string]any{"event": event})
	if err != nil {
		return fmt.Errorf("marshal simulated event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BackendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event to backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	s.logger.Info().Str("user", event.User).Str("channel", event.Channel).Msg("Simulated event sent to backend.")
	return nil
}

// Run sends one event per tick until the context is cancelled. Failures are
// logged and the loop continues.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info().Dur("interval", interval).Msg("Starting event simulator loop...")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Simulator loop stopped.")
			return
		case <-ticker.C:
			if err := s.SendOne(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to send simulated event.")
			}
		}
	}
}
