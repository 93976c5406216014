package messagepipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleSimplePublisher_PublishAndReceive(t *testing.T) {
	// Arrange
	testCtx, testCancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(testCancel)

	projectID, topicID, subID := uniqueNames(t)
	client, _, subscription := setupTestPubsub(t, projectID, topicID, subID)

	publisher, err := messagepipeline.NewGoogleSimplePublisher(testCtx, client, topicID, zerolog.Nop())
	require.NoError(t, err)

	// Act
	err = publisher.Publish(testCtx, []byte(`{"text":"hello"}`), map[string]string{"origin": "test"})
	require.NoError(t, err)

	// Assert
	received := receiveSingleMessage(t, testCtx, subscription, 5*time.Second)
	require.NotNil(t, received, "expected the published message to arrive")
	assert.JSONEq(t, `{"text":"hello"}`, string(received.Data))
	assert.Equal(t, "test", received.Attributes["origin"])

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, publisher.Stop(stopCtx))
}

func TestNewGoogleSimplePublisher_TopicMissing(t *testing.T) {
	testCtx, testCancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(testCancel)

	projectID, topicID, subID := uniqueNames(t)
	client, _, _ := setupTestPubsub(t, projectID, topicID, subID)

	_, err := messagepipeline.NewGoogleSimplePublisher(testCtx, client, "no-such-topic", zerolog.Nop())
	require.Error(t, err)
}
