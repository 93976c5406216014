package cache

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore-backed cache.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// FirestoreCache is a generic Cache implementation that persists entries as
// documents in a Firestore collection. It trades latency for durability:
// entries survive process restarts, which suits low-volume deployments where
// re-deriving a value is expensive (use Redis for high-volume ones).
type FirestoreCache[K comparable, V any] struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreCache creates a new generic FirestoreCache. The client's
// lifecycle is managed by the caller.
func NewFirestoreCache[K comparable, V any](
	cfg *FirestoreConfig,
	client *firestore.Client,
	logger zerolog.Logger,
) (*FirestoreCache[K, V], error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreCache initialized.")

	return &FirestoreCache[K, V]{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreCache").Logger(),
	}, nil
}

// FetchFromCache retrieves a single document by its key.
func (c *FirestoreCache[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := fmt.Sprintf("%v", key)
	docSnap, err := c.client.Collection(c.collectionName).Doc(stringKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return zero, fmt.Errorf("document not found: %w", err)
		}
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to get document from Firestore.")
		return zero, fmt.Errorf("firestore get for %s: %w", stringKey, err)
	}

	var value V
	if err := docSnap.DataTo(&value); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to map Firestore document data.")
		return zero, fmt.Errorf("firestore DataTo for %s: %w", stringKey, err)
	}

	c.logger.Debug().Str("key", stringKey).Msg("Successfully fetched data from Firestore.")
	return value, nil
}

// WriteToCache writes the document for the given key.
func (c *FirestoreCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := fmt.Sprintf("%v", key)
	_, err := c.client.Collection(c.collectionName).Doc(stringKey).Set(ctx, value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to write document to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", stringKey, err)
	}
	c.logger.Debug().Str("key", stringKey).Msg("Successfully wrote data to Firestore.")
	return nil
}
