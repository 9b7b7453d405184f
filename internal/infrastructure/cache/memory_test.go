package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(time.Minute)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"string", "not_available", "not_available"},
		{"number comes back as float64", 42, float64(42)},
		{"map", map[string]interface{}{"vendor_code": "ACME"}, map[string]interface{}{"vendor_code": "ACME"}},
		{"slice", []string{"A", "B"}, []interface{}{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestMemoryCache(t)

			require.NoError(t, c.Set(ctx, "key", tt.value, time.Minute))

			got, err := c.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryCache_MatchResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	result := domain.MatchResult{Status: domain.StatusAvailable, VendorCode: "ACME", ProductCode: "T1", Similarity: 0.912}
	require.NoError(t, c.Set(ctx, "match:ACME:50:table", result, time.Minute))

	got, err := c.Get(ctx, "match:ACME:50:table")
	require.NoError(t, err)

	m, ok := got.(map[string]interface{})
	require.True(t, ok, "Get() type = %T", got)
	assert.Equal(t, "ACME", m["vendor_code"])
	assert.Equal(t, 0.912, m["similarity"])
	assert.NotContains(t, m, "reason", "omitempty fields stay absent")
}

func TestMemoryCache_Set_Unmarshalable(t *testing.T) {
	c := newTestMemoryCache(t)
	err := c.Set(context.Background(), "bad", make(chan int), time.Minute)
	assert.Error(t, err)
	assert.Zero(t, c.Size())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	require.NoError(t, c.Set(ctx, "short", "v", time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))
	time.Sleep(10 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	exists, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_Miss(t *testing.T) {
	c := newTestMemoryCache(t)

	_, err := c.Get(context.Background(), "match:*:50:sofa")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	exists, err := c.Exists(context.Background(), "match:*:50:sofa")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, key, time.Minute))
	}
	require.Equal(t, 3, c.Size())

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "missing"))
	assert.Equal(t, 2, c.Size())
	exists, _ := c.Exists(ctx, "a")
	assert.False(t, exists)

	c.Clear()
	assert.Zero(t, c.Size())
	_, err := c.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	keys := []string{"match:A:50:chair", "match:A:10:desk", "match:A,B:50:chair", "match:B:50:chair"}
	for _, key := range keys {
		require.NoError(t, c.Set(ctx, key, "r", time.Minute))
	}

	removed, err := c.DeletePrefix(ctx, "match:A:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, c.Size())

	for _, key := range keys[2:] {
		exists, _ := c.Exists(ctx, key)
		assert.True(t, exists, key)
	}
}

func TestMemoryCache_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	require.NoError(t, c.Set(ctx, "short", "v", time.Second))
	require.NoError(t, c.Set(ctx, "long", "v", time.Hour))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	assert.Equal(t, 1, c.purgeExpired(time.Now().Add(time.Minute)))
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, 1, c.purgeExpired(time.Now().Add(365*24*time.Hour)))
	assert.Equal(t, 1, c.Size())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("match:V%d:50:q", id%4)
			if err := c.Set(ctx, key, id, time.Minute); err != nil {
				t.Errorf("Set() error = %v", err)
			}
			if _, err := c.Get(ctx, key); err != nil {
				t.Errorf("Get() error = %v", err)
			}
			if id%5 == 0 {
				c.DeletePrefix(ctx, "match:V0:")
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 4)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
