package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// --- Google Cloud Pub/Sub Consumer Implementation ---

// GooglePubsubConsumerConfig holds configuration for the Pub/Sub consumer.
type GooglePubsubConsumerConfig struct {
	SubscriptionID         string
	MaxOutstandingMessages int
	NumGoroutines          int
	SubExistsTimeout       time.Duration
	ShutdownTimeout        time.Duration
}

// NewGooglePubsubConsumerDefaults provides a config with sensible defaults for
// the given subscription.
func NewGooglePubsubConsumerDefaults(subID string) *GooglePubsubConsumerConfig {
	return &GooglePubsubConsumerConfig{
		SubscriptionID:         subID,
		MaxOutstandingMessages: 100,
		NumGoroutines:          5,
		SubExistsTimeout:       20 * time.Second,
		ShutdownTimeout:        30 * time.Second,
	}
}

// GooglePubsubConsumer adapts a Pub/Sub subscription to the MessageConsumer
// interface, converting each received message into the canonical Message type.
type GooglePubsubConsumer struct {
	subscription       *pubsub.Subscription
	logger             zerolog.Logger
	outputChan         chan Message
	stopOnce           sync.Once
	cancelSubscription context.CancelFunc
	shutdownTimeout    time.Duration
	wg                 sync.WaitGroup
	doneChan           chan struct{}
}

// NewGooglePubsubConsumer verifies the subscription exists and returns a consumer
// ready to Start.
func NewGooglePubsubConsumer(
	ctx context.Context,
	cfg *GooglePubsubConsumerConfig,
	client *pubsub.Client,
	logger zerolog.Logger,
) (*GooglePubsubConsumer, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	sub := client.Subscription(cfg.SubscriptionID)

	existsCtx, cancel := context.WithTimeout(ctx, cfg.SubExistsTimeout)
	defer cancel()
	exists, err := sub.Exists(existsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for subscription %s: %w", cfg.SubscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("subscription %s does not exist", cfg.SubscriptionID)
	}

	sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines

	return &GooglePubsubConsumer{
		subscription:    sub,
		logger:          logger.With().Str("component", "GooglePubsubConsumer").Str("subscription_id", cfg.SubscriptionID).Logger(),
		outputChan:      make(chan Message, cfg.MaxOutstandingMessages),
		shutdownTimeout: cfg.ShutdownTimeout,
		doneChan:        make(chan struct{}),
	}, nil
}

// Messages returns the channel on which consumed messages are delivered.
func (c *GooglePubsubConsumer) Messages() <-chan Message { return c.outputChan }

// Start begins receiving from the subscription in a background goroutine.
func (c *GooglePubsubConsumer) Start(ctx context.Context) error {
	c.logger.Info().Msg("Starting Pub/Sub message consumption...")
	receiveCtx, cancel := context.WithCancel(ctx)
	c.cancelSubscription = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.outputChan)
		defer close(c.doneChan)

		err := c.subscription.Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
			payloadCopy := make([]byte, len(msg.Data))
			copy(payloadCopy, msg.Data)

			consumed := Message{
				MessageData: MessageData{
					ID:          msg.ID,
					Payload:     payloadCopy,
					PublishTime: msg.PublishTime,
				},
				Attributes: msg.Attributes,
				Ack:        msg.Ack,
				Nack:       msg.Nack,
			}

			select {
			case c.outputChan <- consumed:
			case <-receiveCtx.Done():
				msg.Nack()
				c.logger.Warn().Str("msg_id", msg.ID).Msg("Consumer stopping, Nacking message.")
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("Pub/Sub Receive call exited with error")
		}
		c.logger.Info().Msg("Pub/Sub Receive goroutine stopped.")
	}()
	return nil
}

// Stop cancels the Receive loop and waits for it to wind down, respecting
// both the provided context and the configured shutdown timeout.
func (c *GooglePubsubConsumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping Pub/Sub consumer...")
		if c.cancelSubscription != nil {
			c.cancelSubscription()
		}
		select {
		case <-c.doneChan:
			c.logger.Info().Msg("Pub/Sub Receive goroutine confirmed stopped.")
		case <-time.After(c.shutdownTimeout):
			stopErr = fmt.Errorf("timeout waiting for Pub/Sub consumer to stop")
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
	})
	return stopErr
}

// Done returns a channel closed once the Receive goroutine has exited.
func (c *GooglePubsubConsumer) Done() <-chan struct{} { return c.doneChan }
