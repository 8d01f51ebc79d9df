package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryCacheRoundTrip(t *testing.T) {
	c := NewInMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ProductKey("p-1"), []byte(`{"name":"Papa"}`), time.Minute))

	got, err := c.Get(ctx, ProductKey("p-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Papa"}`), got)

	exists, err := c.Exists(ctx, ProductKey("p-1"))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, ProductKey("p-1")))
	_, err = c.Get(ctx, ProductKey("p-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInMemoryCacheExpiration(t *testing.T) {
	c := NewInMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 50*time.Millisecond))

	time.Sleep(80 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	exists, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryCacheDeleteByPattern(t *testing.T) {
	c := NewInMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ProductKey("p-1"), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, OwnerProductsKey("u-1"), []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, ComparisonKey("prop-1"), []byte("c"), time.Minute))

	// The product pattern sweeps both product keys and owner listings.
	require.NoError(t, c.DeleteByPattern(ctx, ProductPattern))

	_, err := c.Get(ctx, ProductKey("p-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, OwnerProductsKey("u-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Comparison entries live under their own prefix and survive.
	got, err := c.Get(ctx, ComparisonKey("prop-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}

func TestJSONHelpers(t *testing.T) {
	c := NewInMemoryCache(zap.NewNop())
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	require.NoError(t, SetJSON(ctx, c, "k", payload{Name: "Papa", Price: 2000}, TTL(60)))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "k", &got))
	assert.Equal(t, payload{Name: "Papa", Price: 2000}, got)

	var missing payload
	assert.ErrorIs(t, GetJSON(ctx, c, "nope", &missing), ErrCacheMiss)
}
