package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Creation(t *testing.T) {
	testCases := []struct {
		name       string
		capacity   int
		defaultTTL time.Duration
		expectCap  int
	}{
		{"default values", 0, 0, 1000},
		{"custom capacity", 500, 0, 500},
		{"both custom", 200, 15 * time.Minute, 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := New[string, int](tc.capacity, tc.defaultTTL)
			assert.Equal(t, tc.expectCap, c.Capacity())
			assert.Equal(t, 0, c.Size())
		})
	}
}

func TestCache_BasicSetGet(t *testing.T) {
	c := New[string, string](100, time.Minute)

	t.Run("Set and Get returns value", func(t *testing.T) {
		c.Set("city:tokyo|japan", "scores", 0)
		result, ok := c.Get("city:tokyo|japan")
		require.True(t, ok)
		assert.Equal(t, "scores", result)
	})

	t.Run("Get non-existent key returns false", func(t *testing.T) {
		_, ok := c.Get("non-existent")
		assert.False(t, ok)
	})

	t.Run("Update existing key", func(t *testing.T) {
		c.Set("k", "v1", 0)
		c.Set("k", "v2", 0)
		result, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v2", result)
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string, int](10, time.Minute)

	c.Set("short", 1, 20*time.Millisecond)
	_, ok := c.Get("short")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok, "expired entry must not be returned")
	assert.False(t, c.Has("short"))
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[string, int](3, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4, 0)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := New[string, int](10, time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Remove("a")
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[string, int](100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			c.Set(key, n, 0)
			c.Get(key)
			c.Has(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 5)
}
