package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

// ClassifiedRecord is a message event with the classifier's verdict merged in.
// Payload is the re-serialized JSON object; all fields of the original event
// are preserved alongside the two verdict fields.
type ClassifiedRecord struct {
	// Payload is the merged, re-serialized JSON record.
	Payload []byte
	// EventTime is the event's own timestamp (the "ts" field), falling back to
	// the broker publish time, then the wall clock. It drives hour bucketing.
	EventTime time.Time
	// Verdict is the classification applied to this record.
	Verdict sentiment.Verdict
}

// ClassifyJSON decodes one raw JSON record, classifies its text, and returns
// the merged record. Classifier failures are absorbed into the neutral verdict;
// only a decode failure is returned as an error, and the caller is expected to
// drop that record and continue.
func ClassifyJSON(ctx context.Context, classifier sentiment.Classifier, raw []byte, publishTime time.Time, logger zerolog.Logger) (*ClassifiedRecord, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode record payload: not a JSON object")
	}

	text, _ := fields["text"].(string)

	verdict, err := classifier.Classify(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("Classifier failed, substituting neutral verdict.")
		verdict = sentiment.Neutral()
	}

	fields["is_political"] = verdict.IsPolitical
	fields["sentiment_score"] = verdict.Score

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("re-encode record payload: %w", err)
	}

	return &ClassifiedRecord{
		Payload:   merged,
		EventTime: eventTime(fields, publishTime),
		Verdict:   verdict,
	}, nil
}

// NewClassifyTransformer returns a pipeline transformer applying ClassifyJSON
// to each consumed message. Undecodable payloads are skipped (acked and
// logged), never failed, so one malformed producer cannot stall the stream.
func NewClassifyTransformer(classifier sentiment.Classifier, logger zerolog.Logger) (messagepipeline.MessageTransformer[ClassifiedRecord], error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	tLogger := logger.With().Str("component", "ClassifyTransformer").Logger()

	return func(ctx context.Context, msg *messagepipeline.Message) (*ClassifiedRecord, bool, error) {
		record, err := ClassifyJSON(ctx, classifier, msg.Payload, msg.PublishTime, tLogger)
		if err != nil {
			tLogger.Error().Err(err).Str("msg_id", msg.ID).Bytes("payload", msg.Payload).Msg("Skipping undecodable record.")
			return nil, true, nil
		}
		return record, false, nil
	}, nil
}

// eventTime resolves the record's hour-bucketing timestamp: the platform "ts"
// field (float epoch as string) wins, then the broker publish time, then now.
func eventTime(fields map[string]any, publishTime time.Time) time.Time {
	if ts, ok := fields["ts"].(string); ok && ts != "" {
		if epoch, err := strconv.ParseFloat(ts, 64); err == nil {
			sec := int64(epoch)
			nsec := int64((epoch - float64(sec)) * 1e9)
			return time.Unix(sec, nsec).UTC()
		}
	}
	if !publishTime.IsZero() {
		return publishTime.UTC()
	}
	return time.Now().UTC()
}
