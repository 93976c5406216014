package cache_test

import (
	"context"
	"testing"

	"github.com/illmade-knight/go-sentiment-flow/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_WriteAndFetch(t *testing.T) {
	c := cache.NewInMemoryCache[string, int]()
	ctx := context.Background()

	require.NoError(t, c.WriteToCache(ctx, "answer", 42))

	value, err := c.FetchFromCache(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestInMemoryCache_MissReturnsError(t *testing.T) {
	c := cache.NewInMemoryCache[string, string]()

	_, err := c.FetchFromCache(context.Background(), "absent")
	require.Error(t, err)
}

func TestInMemoryCache_OverwriteReplacesValue(t *testing.T) {
	c := cache.NewInMemoryCache[string, string]()
	ctx := context.Background()

	require.NoError(t, c.WriteToCache(ctx, "key", "old"))
	require.NoError(t, c.WriteToCache(ctx, "key", "new"))

	value, err := c.FetchFromCache(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}
