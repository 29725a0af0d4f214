package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_JSON(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var got []string
	hit, err := c.GetJSON(ctx, "provinces", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "provinces", []string{"San José", "Heredia"}, time.Minute))
	hit, err = c.GetJSON(ctx, "provinces", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"San José", "Heredia"}, got)

	now = now.Add(2 * time.Minute)
	hit, err = c.GetJSON(ctx, "provinces", &got)
	require.NoError(t, err)
	assert.False(t, hit, "entry expired")
}

func TestMemoryCache_Incr(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		n, err := c.Incr(ctx, "login:ana", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	now = now.Add(time.Hour)
	n, err := c.Incr(ctx, "login:ana", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter restarts after expiry")

	require.NoError(t, c.Delete(ctx, "login:ana"))
	n, _ = c.Incr(ctx, "login:ana", time.Minute)
	assert.Equal(t, int64(1), n)
}
