package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var archivedRecords = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sentiment_archived_records_total",
	Help: "Number of classified records written to object storage.",
})

// GCSBatchUploaderConfig holds configuration specific to the GCS uploader.
type GCSBatchUploaderConfig struct {
	BucketName   string
	ObjectPrefix string
}

// GCSBatchUploader groups records by their hour key and uploads each group as
// one newline-delimited JSON object. Objects are written uncompressed so the
// aggregation side can scan them line by line.
type GCSBatchUploader struct {
	client GCSClient
	config GCSBatchUploaderConfig
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewGCSBatchUploader creates a new uploader configured for Google Cloud Storage.
func NewGCSBatchUploader(
	gcsClient GCSClient,
	config GCSBatchUploaderConfig,
	logger zerolog.Logger,
) (*GCSBatchUploader, error) {
	if gcsClient == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSBatchUploader{
		client: gcsClient,
		config: config,
		logger: logger.With().Str("component", "GCSBatchUploader").Logger(),
	}, nil
}

// UploadBatch takes a batch of records, groups them by hour key, and uploads
// each group to a separate GCS object in parallel. A failed group does not
// prevent the other groups from uploading; the combined error is returned.
func (u *GCSBatchUploader) UploadBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	grouped := make(map[string][]*Record)
	for _, rec := range records {
		if rec != nil && rec.GetBatchKey() != "" {
			grouped[rec.GetBatchKey()] = append(grouped[rec.GetBatchKey()], rec)
		}
	}
	if len(grouped) == 0 {
		return nil // All records were nil or had empty keys.
	}

	var uploadWg sync.WaitGroup
	errs := make(chan error, len(grouped))

	for key, group := range grouped {
		uploadWg.Add(1)
		u.wg.Add(1) // Tracked by Close as well.

		go func(batchKey string, batch []*Record) {
			defer uploadWg.Done()
			defer u.wg.Done()
			if err := u.uploadSingleGroup(ctx, batchKey, batch); err != nil {
				errs <- err
			}
		}(key, group)
	}

	uploadWg.Wait()
	close(errs)

	var combinedErr error
	for err := range errs {
		if combinedErr == nil {
			combinedErr = err
		} else {
			combinedErr = fmt.Errorf("%v; %w", combinedErr, err)
		}
	}
	return combinedErr
}

// uploadSingleGroup writes one group of records to a single GCS object.
func (u *GCSBatchUploader) uploadSingleGroup(ctx context.Context, batchKey string, batch []*Record) error {
	objectName := path.Join(u.config.ObjectPrefix, batchKey, fmt.Sprintf("%s.jsonl", uuid.New().String()))
	u.logger.Info().Str("object_name", objectName).Int("record_count", len(batch)).Msg("Starting upload for grouped batch.")

	writer := u.client.Bucket(u.config.BucketName).Object(objectName).NewWriter(ctx)

	var written int
	for _, rec := range batch {
		if _, err := writer.Write(append(rec.Line, '\n')); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write line to GCS object %s: %w", objectName, err)
		}
		written++
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close GCS object writer for %s: %w", objectName, err)
	}

	archivedRecords.Add(float64(written))
	u.logger.Info().
		Str("object_name", objectName).
		Int("record_count", written).
		Msg("Successfully uploaded grouped batch to GCS.")
	return nil
}

// Close waits for any pending upload goroutines to complete.
func (u *GCSBatchUploader) Close() error {
	u.logger.Info().Msg("Waiting for all pending GCS uploads to complete...")
	u.wg.Wait()
	u.logger.Info().Msg("All GCS uploads completed.")
	return nil
}
