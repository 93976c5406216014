package messagepipeline

import (
	"context"
)

// ====================================================================================
// This file defines the core interfaces and function types for building a dataflow
// pipeline: consuming, transforming, and processing messages.
// ====================================================================================

// --- Stage 1: Consumer ---

// MessageConsumer defines the interface for a message source (e.g., Pub/Sub).
// It is responsible for fetching messages and handing them off to the pipeline.
type MessageConsumer interface {
	// Messages returns a read-only channel from which pipeline workers will receive messages.
	Messages() <-chan Message
	// Start begins the consumption process (e.g., by calling subscription.Receive).
	Start(ctx context.Context) error
	// Stop gracefully ceases message consumption and waits for background tasks to finish.
	Stop(ctx context.Context) error
	// Done returns a channel that is closed when the consumer has completely shut down.
	Done() <-chan struct{}
}

// --- Stage 2: Transformer ---

// MessageTransformer defines a function that transforms a generic `Message` into a
// new, specific, structured payload of type T.
//
// The 'skip' return value can be set to true to signal that this message should
// be acknowledged and not processed further, effectively filtering it from the
// pipeline. Returning an error causes the message to be Nacked for redelivery.
type MessageTransformer[T any] func(ctx context.Context, msg *Message) (payload *T, skip bool, err error)

// --- Stage 3: Processor ---

// ProcessableItem links a transformed payload with its original message. This allows
// processors to access the original message for acknowledgment (Ack/Nack) purposes.
type ProcessableItem[T any] struct {
	Original Message
	Payload  *T
}

// BatchProcessor defines the contract for an endpoint that handles batches of
// transformed messages of type T.
//
// The implementation is responsible for the entire batch's lifecycle, including
// deciding whether to Ack or Nack individual messages based on the processing
// outcome. An error returned from this function is logged by the service; message
// acknowledgements remain the implementation's responsibility.
type BatchProcessor[T any] func(ctx context.Context, batch []ProcessableItem[T]) error
