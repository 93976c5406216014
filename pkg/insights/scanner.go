// Package insights aggregates archived classified records into an hourly
// time series of political-sentiment polarity counts.
package insights

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

var scannedObjects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sentiment_scanned_objects_total",
	Help: "Number of storage objects read during aggregation runs.",
})

// HourlyAggregate is the positive/negative count pair for one hour bucket.
type HourlyAggregate struct {
	// Timestamp is the hour bucket key, formatted from the object key's path
	// segments, e.g. "2024-01-15T10:00:00Z".
	Timestamp string `json:"timestamp" bigquery:"timestamp"`
	// Positive counts records with sentiment_score > 0.
	Positive int `json:"positive" bigquery:"positive"`
	// Negative counts records with sentiment_score < 0.
	Negative int `json:"negative" bigquery:"negative"`
}

// ScannerConfig holds configuration for an aggregation Scanner.
type ScannerConfig struct {
	// Prefix restricts the scan to objects under this prefix. Empty scans the
	// whole bucket.
	Prefix string
	// ObjectTimeout bounds the read of a single object.
	ObjectTimeout time.Duration
}

// Scanner performs full-bucket aggregation runs. Each run owns a fresh
// accumulation map; nothing is shared across runs.
type Scanner struct {
	store  ObjectStore
	cfg    ScannerConfig
	logger zerolog.Logger
}

// NewScanner creates a Scanner over the given object store.
func NewScanner(store ObjectStore, cfg ScannerConfig, logger zerolog.Logger) (*Scanner, error) {
	if store == nil {
		return nil, fmt.Errorf("object store cannot be nil")
	}
	if cfg.ObjectTimeout <= 0 {
		cfg.ObjectTimeout = 30 * time.Second
	}
	return &Scanner{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "Scanner").Logger(),
	}, nil
}

// Aggregate lists every object in the bucket, tallies positive and negative
// sentiment lines into hour buckets parsed from each object's key, and returns
// one entry per distinct hour in the order the hours were first encountered.
//
// Error handling is per object: a failure anywhere while processing a single
// object (malformed key, fetch error, read error, undecodable line) discards
// that whole object's counts, its hour is registered only by objects that read
// cleanly, and the run continues. Only a listing failure aborts the run.
func (s *Scanner) Aggregate(ctx context.Context) ([]HourlyAggregate, error) {
	counts := make(map[string]*HourlyAggregate)
	var order []string

	it := s.store.Objects(ctx, s.cfg.Prefix)
	for {
		name, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		hourKey, err := HourKeyFromObjectName(name)
		if err != nil {
			s.logger.Error().Err(err).Str("object", name).Msg("Skipping object with malformed key.")
			continue
		}

		positive, negative, err := s.countObject(ctx, name)
		if err != nil {
			s.logger.Error().Err(err).Str("object", name).Msg("Failed to process object, contributing zero counts.")
			continue
		}

		agg, ok := counts[hourKey]
		if !ok {
			agg = &HourlyAggregate{Timestamp: hourKey}
			counts[hourKey] = agg
			order = append(order, hourKey)
		}
		agg.Positive += positive
		agg.Negative += negative
		s.logger.Info().Str("object", name).Str("hour", hourKey).Msg("Processed object.")
	}

	result := make([]HourlyAggregate, 0, len(order))
	for _, key := range order {
		result = append(result, *counts[key])
	}
	return result, nil
}

// countObject reads one object as newline-delimited JSON and counts the lines
// carrying a non-zero sentiment_score. An undecodable line fails the whole
// object; partial counts never leak to the caller.
func (s *Scanner) countObject(ctx context.Context, name string) (positive, negative int, err error) {
	readCtx, cancel := context.WithTimeout(ctx, s.cfg.ObjectTimeout)
	defer cancel()

	rc, err := s.store.NewReader(readCtx, name)
	if err != nil {
		return 0, 0, fmt.Errorf("open object %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	var reader io.Reader = rc
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return 0, 0, fmt.Errorf("gunzip object %s: %w", name, err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return 0, 0, fmt.Errorf("decode line in object %s: %w", name, err)
		}

		// Absent or non-numeric scores contribute to neither counter.
		score, ok := record["sentiment_score"].(float64)
		if !ok {
			continue
		}
		switch {
		case score > 0:
			positive++
		case score < 0:
			negative++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("read object %s: %w", name, err)
	}

	scannedObjects.Inc()
	return positive, negative, nil
}

// HourKeyFromObjectName parses the hour bucket from an object key whose path
// ends ".../year/month/day/hour/filename". The segments are used verbatim, so
// a zero-padded producer yields "2024-01-15T10:00:00Z". A key with fewer than
// five segments is malformed.
func HourKeyFromObjectName(name string) (string, error) {
	parts := strings.Split(name, "/")
	if len(parts) < 5 {
		return "", fmt.Errorf("object key %q has fewer than 5 path segments", name)
	}
	last := parts[len(parts)-5:]
	year, month, day, hour := last[0], last[1], last[2], last[3]
	return fmt.Sprintf("%s-%s-%sT%s:00:00Z", year, month, day, hour), nil
}
