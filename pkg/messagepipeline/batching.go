package messagepipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BatchingServiceConfig holds the configuration for a BatchingService.
type BatchingServiceConfig struct {
	NumWorkers    int
	BatchSize     int
	FlushInterval time.Duration
}

// BatchingService orchestrates a pipeline that consumes messages, transforms them,
// collects them into batches, and sends them to a batch processor function.
type BatchingService[T any] struct {
	cfg         BatchingServiceConfig
	consumer    MessageConsumer
	transformer MessageTransformer[T]
	processor   BatchProcessor[T]
	logger      zerolog.Logger
	transformWg sync.WaitGroup
	batchWg     sync.WaitGroup
	batchChan   chan ProcessableItem[T]
}

// NewBatchingService creates a new, generic BatchingService.
func NewBatchingService[T any](
	cfg BatchingServiceConfig,
	consumer MessageConsumer,
	transformer MessageTransformer[T],
	processor BatchProcessor[T],
	logger zerolog.Logger,
) (*BatchingService[T], error) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 1 * time.Minute
	}
	if consumer == nil || transformer == nil || processor == nil {
		return nil, fmt.Errorf("consumer, transformer, and processor cannot be nil")
	}

	return &BatchingService[T]{
		cfg:         cfg,
		consumer:    consumer,
		transformer: transformer,
		processor:   processor,
		logger:      logger.With().Str("service", "BatchingService").Logger(),
		batchChan:   make(chan ProcessableItem[T], cfg.BatchSize*cfg.NumWorkers),
	}, nil
}

// Start begins the service operation.
func (s *BatchingService[T]) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting batching service...")

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}
	s.logger.Info().Msg("Message consumer started.")

	s.batchWg.Add(1)
	go s.batchWorker(ctx)

	s.logger.Info().Int("worker_count", s.cfg.NumWorkers).Msg("Starting transformation workers...")
	s.transformWg.Add(s.cfg.NumWorkers)
	for i := 0; i < s.cfg.NumWorkers; i++ {
		go s.transformWorker(ctx, i)
	}

	// The batchChan may only be closed once every transform worker has exited,
	// otherwise a late transform could send on a closed channel.
	go func() {
		s.transformWg.Wait()
		close(s.batchChan)
	}()

	s.logger.Info().Msg("Batching service started successfully.")
	return nil
}

// Stop gracefully shuts down the entire service in the correct order: consumer
// first so no new messages arrive, then the transform workers drain, then the
// batch worker flushes whatever remains.
func (s *BatchingService[T]) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping batching service...")

	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}

	done := make(chan struct{})
	go func() {
		s.transformWg.Wait()
		s.batchWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Batching service stopped gracefully.")
		return nil
	case <-ctx.Done():
		s.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for batching service to stop.")
		return ctx.Err()
	}
}

// transformWorker pulls messages off the consumer, transforms them, and feeds
// the batch worker.
func (s *BatchingService[T]) transformWorker(ctx context.Context, workerID int) {
	defer s.transformWg.Done()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("worker_id", workerID).Msg("Transform worker shutting down.")
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				s.logger.Info().Int("worker_id", workerID).Msg("Consumer channel closed, worker exiting.")
				return
			}

			payload, skip, err := s.transformer(ctx, &msg)
			if err != nil {
				s.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Failed to transform message, Nacking.")
				msg.Nack()
				continue
			}
			if skip {
				s.logger.Debug().Str("msg_id", msg.ID).Msg("Transformer signaled to skip message, Acking.")
				msg.Ack()
				continue
			}

			select {
			case s.batchChan <- ProcessableItem[T]{Original: msg, Payload: payload}:
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}
}

// batchWorker accumulates transformed items and hands off a batch when it is
// full or the flush interval elapses.
func (s *BatchingService[T]) batchWorker(ctx context.Context) {
	defer s.batchWg.Done()

	batch := make([]ProcessableItem[T], 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		s.logger.Debug().Int("batch_size", len(batch)).Str("reason", reason).Msg("Flushing batch.")
		if err := s.processor(ctx, batch); err != nil {
			s.logger.Error().Err(err).Msg("Batch processor reported an error.")
		}
		batch = make([]ProcessableItem[T], 0, s.cfg.BatchSize)
	}

	for {
		select {
		case item, ok := <-s.batchChan:
			if !ok {
				flush("shutdown")
				s.logger.Info().Msg("Batch channel closed, batch worker exiting.")
				return
			}
			batch = append(batch, item)
			if len(batch) >= s.cfg.BatchSize {
				flush("size")
			}
		case <-ticker.C:
			flush("interval")
		}
	}
}
