package messagepipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Value string
}

// batchCollector records every batch a BatchingService hands it.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]messagepipeline.ProcessableItem[testPayload]
}

func (c *batchCollector) process(_ context.Context, batch []messagepipeline.ProcessableItem[testPayload]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]messagepipeline.ProcessableItem[testPayload], len(batch))
	copy(copied, batch)
	c.batches = append(c.batches, copied)
	for _, item := range batch {
		item.Original.Ack()
	}
	return nil
}

func (c *batchCollector) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func passthroughTransformer(_ context.Context, msg *messagepipeline.Message) (*testPayload, bool, error) {
	return &testPayload{Value: string(msg.Payload)}, false, nil
}

func newTestMessage(id, payload string, ack, nack func()) messagepipeline.Message {
	if ack == nil {
		ack = func() {}
	}
	if nack == nil {
		nack = func() {}
	}
	return messagepipeline.Message{
		MessageData: messagepipeline.MessageData{
			ID:          id,
			Payload:     []byte(payload),
			PublishTime: time.Now().UTC(),
		},
		Ack:  ack,
		Nack: nack,
	}
}

func TestBatchingService_FlushOnSize(t *testing.T) {
	// Arrange
	consumer := newMockMessageConsumer(10)
	collector := &batchCollector{}

	service, err := messagepipeline.NewBatchingService[testPayload](
		messagepipeline.BatchingServiceConfig{NumWorkers: 1, BatchSize: 2, FlushInterval: time.Hour},
		consumer,
		passthroughTransformer,
		collector.process,
		zerolog.Nop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	var acked sync.WaitGroup
	acked.Add(2)
	ack := func() { acked.Done() }

	// Act
	consumer.Push(newTestMessage("msg-1", "one", ack, nil))
	consumer.Push(newTestMessage("msg-2", "two", ack, nil))

	// Assert
	waitDone := make(chan struct{})
	go func() { acked.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch to flush")
	}

	require.Equal(t, 1, collector.batchCount(), "expected one size-triggered flush")
	assert.Equal(t, "one", collector.batches[0][0].Payload.Value)
	assert.Equal(t, "two", collector.batches[0][1].Payload.Value)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))
}

func TestBatchingService_FlushOnStop(t *testing.T) {
	// Arrange
	consumer := newMockMessageConsumer(10)
	collector := &batchCollector{}

	service, err := messagepipeline.NewBatchingService[testPayload](
		messagepipeline.BatchingServiceConfig{NumWorkers: 1, BatchSize: 100, FlushInterval: time.Hour},
		consumer,
		passthroughTransformer,
		collector.process,
		zerolog.Nop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	consumer.Push(newTestMessage("msg-1", "pending", nil, nil))

	// Give the transform worker a moment to move the message into the batch.
	time.Sleep(100 * time.Millisecond)

	// Act
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))

	// Assert
	require.Equal(t, 1, collector.batchCount(), "pending items must flush on shutdown")
	assert.Equal(t, "pending", collector.batches[0][0].Payload.Value)
}

func TestBatchingService_TransformErrorNacks(t *testing.T) {
	// Arrange
	consumer := newMockMessageConsumer(10)
	collector := &batchCollector{}

	failing := func(_ context.Context, _ *messagepipeline.Message) (*testPayload, bool, error) {
		return nil, false, fmt.Errorf("boom")
	}

	service, err := messagepipeline.NewBatchingService[testPayload](
		messagepipeline.BatchingServiceConfig{NumWorkers: 1, BatchSize: 10, FlushInterval: time.Hour},
		consumer,
		failing,
		collector.process,
		zerolog.Nop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	nacked := make(chan struct{})
	consumer.Push(newTestMessage("msg-1", "bad", nil, func() { close(nacked) }))

	// Assert
	select {
	case <-nacked:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Nack")
	}
	assert.Equal(t, 0, collector.batchCount())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))
}

func TestBatchingService_SkipAcks(t *testing.T) {
	// Arrange
	consumer := newMockMessageConsumer(10)
	collector := &batchCollector{}

	skipping := func(_ context.Context, _ *messagepipeline.Message) (*testPayload, bool, error) {
		return nil, true, nil
	}

	service, err := messagepipeline.NewBatchingService[testPayload](
		messagepipeline.BatchingServiceConfig{NumWorkers: 1, BatchSize: 10, FlushInterval: time.Hour},
		consumer,
		skipping,
		collector.process,
		zerolog.Nop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, service.Start(ctx))

	acked := make(chan struct{})
	consumer.Push(newTestMessage("msg-1", "filtered", func() { close(acked) }, nil))

	// Assert
	select {
	case <-acked:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Ack")
	}
	assert.Equal(t, 0, collector.batchCount(), "skipped messages must not reach the processor")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))
}

func TestNewBatchingService_Validation(t *testing.T) {
	_, err := messagepipeline.NewBatchingService[testPayload](
		messagepipeline.BatchingServiceConfig{},
		nil,
		passthroughTransformer,
		(&batchCollector{}).process,
		zerolog.Nop(),
	)
	require.Error(t, err)
}
