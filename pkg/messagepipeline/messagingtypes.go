package messagepipeline

import (
	"time"
)

// Message is the canonical, internal representation of an event flowing through the
// pipeline. It contains the core data, broker metadata, and acknowledgment handles.
type Message struct {
	MessageData

	// Attributes holds metadata from the message broker (e.g., Pub/Sub attributes).
	Attributes map[string]string

	// Ack signals that processing was successful and the message can be
	// permanently removed from the source.
	Ack func()

	// Nack signals that processing has failed and the message should be
	// re-queued or sent to a dead-letter queue.
	Nack func()
}

// MessageData holds the essential payload of a message.
type MessageData struct {
	// ID is the unique identifier for the message from the source broker.
	ID string `json:"id"`

	// Payload is the raw byte content of the message.
	Payload []byte `json:"payload"`

	// PublishTime is the timestamp when the message was originally published.
	PublishTime time.Time `json:"publishTime"`
}
