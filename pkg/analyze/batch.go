package analyze

import (
	"context"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

// InputRecord is one opaque record of a trigger batch.
type InputRecord struct {
	// ID identifies the record within its batch (e.g. a stream sequence id).
	ID string
	// Data is the payload in the batch's encoding convention.
	Data []byte
	// Encoding names how Data wraps the JSON record.
	Encoding PayloadEncoding
}

// OutputRecord is one transformed record, re-encoded to mirror its input.
type OutputRecord struct {
	ID   string
	Data []byte
}

// TransformBatch classifies every record of a batch, preserving input order.
// A record that cannot be decoded or re-encoded is dropped (logged, no
// placeholder); the rest of the batch is unaffected. Classifier failures never
// drop a record: the neutral verdict is merged instead.
func TransformBatch(ctx context.Context, classifier sentiment.Classifier, records []InputRecord, logger zerolog.Logger) []OutputRecord {
	bLogger := logger.With().Str("component", "TransformBatch").Logger()
	out := make([]OutputRecord, 0, len(records))

	for _, rec := range records {
		raw, err := rec.Encoding.Decode(rec.Data)
		if err != nil {
			bLogger.Error().Err(err).Str("record_id", rec.ID).Msg("Dropping record with undecodable payload.")
			continue
		}

		classified, err := ClassifyJSON(ctx, classifier, raw, time.Time{}, bLogger)
		if err != nil {
			bLogger.Error().Err(err).Str("record_id", rec.ID).Bytes("payload", raw).Msg("Dropping unparseable record.")
			continue
		}

		encoded, err := rec.Encoding.Encode(classified.Payload)
		if err != nil {
			bLogger.Error().Err(err).Str("record_id", rec.ID).Msg("Dropping record that failed output re-encoding.")
			continue
		}

		out = append(out, OutputRecord{ID: rec.ID, Data: encoded})
	}
	return out
}

var _ sentiment.Classifier = neutralClassifier{}

// neutralClassifier returns the neutral verdict for every text. It backs
// NoopClassifier for wiring pipelines without a language-model dependency.
type neutralClassifier struct{}

func (neutralClassifier) Classify(_ context.Context, _ string) (sentiment.Verdict, error) {
	return sentiment.Neutral(), nil
}

// NoopClassifier returns a Classifier that marks everything non-political.
func NoopClassifier() sentiment.Classifier {
	return neutralClassifier{}
}
