package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/illmade-knight/go-sentiment-flow/pkg/cache"
	"github.com/rs/zerolog"
)

// CachingClassifier wraps another Classifier with a verdict cache keyed by the
// SHA-256 of the message text, so repeated texts skip the language-model call.
// Cache failures degrade to the inner classifier; only successful verdicts are
// written back.
type CachingClassifier struct {
	inner  Classifier
	cache  cache.Cache[string, Verdict]
	logger zerolog.Logger
}

// NewCachingClassifier wraps inner with the given verdict cache.
func NewCachingClassifier(inner Classifier, verdictCache cache.Cache[string, Verdict], logger zerolog.Logger) (*CachingClassifier, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner classifier cannot be nil")
	}
	if verdictCache == nil {
		return nil, fmt.Errorf("verdict cache cannot be nil")
	}
	return &CachingClassifier{
		inner:  inner,
		cache:  verdictCache,
		logger: logger.With().Str("component", "CachingClassifier").Logger(),
	}, nil
}

// Classify consults the cache first and falls back to the inner classifier.
func (c *CachingClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	if text == "" {
		return Neutral(), nil
	}

	key := cacheKey(text)
	if verdict, err := c.cache.FetchFromCache(ctx, key); err == nil {
		c.logger.Debug().Str("key", key).Msg("Verdict cache hit.")
		return verdict, nil
	}

	verdict, err := c.inner.Classify(ctx, text)
	if err != nil {
		return verdict, err
	}

	if writeErr := c.cache.WriteToCache(ctx, key, verdict); writeErr != nil {
		// A failed cache write only costs a repeat classification later.
		c.logger.Warn().Err(writeErr).Str("key", key).Msg("Failed to write verdict to cache.")
	}
	return verdict, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
