package messagepipeline_test

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func sanitizedTestName(t *testing.T) string {
	name := t.Name()
	reg := regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	sanitized := reg.ReplaceAllString(name, "-")
	sanitized = regexp.MustCompile(`^-+|-+$`).ReplaceAllString(sanitized, "")
	if len(sanitized) > 20 {
		sanitized = sanitized[:20]
	}
	return sanitized
}

// setupTestPubsub creates a mock Pub/Sub server, client, topic, and subscription for testing.
func setupTestPubsub(t *testing.T, projectID, topicID, subID string) (*pubsub.Client, *pubsub.Topic, *pubsub.Subscription) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, projectID, option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, topicID)
	require.NoError(t, err)

	sub, err := client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	return client, topic, sub
}

// uniqueNames returns collision-free project/topic/sub ids for a test run.
func uniqueNames(t *testing.T) (string, string, string) {
	t.Helper()
	suffix := fmt.Sprintf("%s-%d", sanitizedTestName(t), time.Now().UnixNano())
	return "proj-" + suffix, "topic-" + suffix, "sub-" + suffix
}

// receiveSingleMessage is a test helper to wait for one message from a subscription.
func receiveSingleMessage(t *testing.T, ctx context.Context, sub *pubsub.Subscription, timeout time.Duration) *pubsub.Message {
	t.Helper()
	var receivedMsg *pubsub.Message
	var mu sync.RWMutex

	receiveCtx, receiveCancel := context.WithTimeout(ctx, timeout)
	defer receiveCancel()

	err := sub.Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
		mu.Lock()
		defer mu.Unlock()
		if receivedMsg == nil {
			receivedMsg = msg
			msg.Ack()
			receiveCancel()
		} else {
			msg.Nack()
		}
	})
	if err != nil && err != context.Canceled {
		t.Logf("Receive loop ended with an unexpected error: %v", err)
	}

	mu.RLock()
	defer mu.RUnlock()
	return receivedMsg
}

// --- MockMessageConsumer ---

// mockMessageConsumer simulates a message source for unit tests.
type mockMessageConsumer struct {
	msgChan  chan messagepipeline.Message
	doneChan chan struct{}
	stopOnce sync.Once
}

func newMockMessageConsumer(bufferSize int) *mockMessageConsumer {
	return &mockMessageConsumer{
		msgChan:  make(chan messagepipeline.Message, bufferSize),
		doneChan: make(chan struct{}),
	}
}

func (m *mockMessageConsumer) Messages() <-chan messagepipeline.Message { return m.msgChan }

func (m *mockMessageConsumer) Start(_ context.Context) error { return nil }

func (m *mockMessageConsumer) Stop(_ context.Context) error {
	m.stopOnce.Do(func() {
		close(m.msgChan)
		close(m.doneChan)
	})
	return nil
}

func (m *mockMessageConsumer) Done() <-chan struct{} { return m.doneChan }

// Push delivers a message to the pipeline under test.
func (m *mockMessageConsumer) Push(msg messagepipeline.Message) {
	m.msgChan <- msg
}
