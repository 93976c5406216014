// Package archive writes classified records to hour-partitioned,
// newline-delimited JSON objects in Google Cloud Storage.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/analyze"
	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

// Record is one line of an archived object together with the hour-partition
// key it belongs under.
type Record struct {
	// BatchKey is the storage partition, "year/month/day/hour" in UTC with
	// zero-padded segments, derived from the record's event time.
	BatchKey string
	// Line is the classified record's JSON, written as one NDJSON line.
	Line []byte
}

// GetBatchKey returns the key used for grouping records into objects.
func (r *Record) GetBatchKey() string {
	return r.BatchKey
}

// HourKey formats the hour partition key for a timestamp,
// e.g. "2024/01/15/10".
func HourKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d/%02d/%02d/%02d", t.Year(), t.Month(), t.Day(), t.Hour())
}

// NewRecordTransformer composes the classification transformer with hour-key
// derivation, producing the archival Record type the uploader consumes.
func NewRecordTransformer(classifier sentiment.Classifier, logger zerolog.Logger) (messagepipeline.MessageTransformer[Record], error) {
	classify, err := analyze.NewClassifyTransformer(classifier, logger)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, msg *messagepipeline.Message) (*Record, bool, error) {
		classified, skip, err := classify(ctx, msg)
		if err != nil || skip {
			return nil, skip, err
		}
		return &Record{
			BatchKey: HourKey(classified.EventTime),
			Line:     classified.Payload,
		}, false, nil
	}, nil
}
