package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("k1", []byte("v1"), 0)
	value, ok := c.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), value)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("k1", []byte("v1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k1")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"), 0)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	_, ok := c.Get("k0")
	assert.True(t, ok)

	c.Set("k3", []byte("v"), 0)

	_, ok = c.Get("k1")
	assert.False(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Size())
}

func TestLRUCache_InvalidateWildcard(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("user:1:a", []byte("v"), 0)
	c.Set("user:1:b", []byte("v"), 0)
	c.Set("user:2:a", []byte("v"), 0)

	removed := c.Invalidate("user:1:*")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("user:2:a")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_InvalidateExact(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("k1", []byte("v"), 0)

	assert.Equal(t, 1, c.Invalidate("k1"))
	assert.Equal(t, 0, c.Invalidate("k1"))
}
