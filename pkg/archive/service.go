package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/illmade-knight/go-sentiment-flow/pkg/sentiment"
	"github.com/rs/zerolog"
)

// NewArchiveService assembles the analyzer's complete pipeline: consume,
// classify, batch, and upload to hour-partitioned GCS objects. Messages are
// acked only after their group uploads successfully; a failed group is nacked
// for redelivery.
func NewArchiveService(
	cfg messagepipeline.BatchingServiceConfig,
	consumer messagepipeline.MessageConsumer,
	gcsClient GCSClient,
	uploaderCfg GCSBatchUploaderConfig,
	classifier sentiment.Classifier,
	logger zerolog.Logger,
) (*messagepipeline.BatchingService[Record], error) {
	uploader, err := NewGCSBatchUploader(gcsClient, uploaderCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS uploader: %w", err)
	}

	transformer, err := NewRecordTransformer(classifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create record transformer: %w", err)
	}

	// The processor groups the flushed batch by hour key and uploads each
	// group in parallel, acknowledging per group.
	batchProcessor := func(ctx context.Context, batch []messagepipeline.ProcessableItem[Record]) error {
		if len(batch) == 0 {
			return nil
		}

		grouped := make(map[string][]messagepipeline.ProcessableItem[Record])
		for _, item := range batch {
			key := item.Payload.GetBatchKey()
			grouped[key] = append(grouped[key], item)
		}

		var wg sync.WaitGroup
		var firstErr error
		var mu sync.Mutex

		for _, group := range grouped {
			wg.Add(1)
			go func(group []messagepipeline.ProcessableItem[Record]) {
				defer wg.Done()

				payloads := make([]*Record, len(group))
				for i, item := range group {
					payloads[i] = item.Payload
				}

				if err := uploader.UploadBatch(ctx, payloads); err != nil {
					logger.Error().Err(err).Int("batch_size", len(group)).Msg("Failed to upload grouped batch, Nacking messages.")
					for _, item := range group {
						item.Original.Nack()
					}
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}

				logger.Info().Int("batch_size", len(group)).Msg("Successfully uploaded grouped batch, Acking messages.")
				for _, item := range group {
					item.Original.Ack()
				}
			}(group)
		}
		wg.Wait()
		return firstErr
	}

	service, err := messagepipeline.NewBatchingService[Record](
		cfg,
		consumer,
		transformer,
		batchProcessor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batching service for archive: %w", err)
	}
	return service, nil
}
