package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_SetThenGet(t *testing.T) {
	c := NewLRU(2)
	ctx := context.Background()

	c.Set(ctx, "a", &Entry{ETag: "E1"})
	entry, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "E1", entry.ETag)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(2)
	ctx := context.Background()

	c.Set(ctx, "a", &Entry{ETag: "A"})
	c.Set(ctx, "b", &Entry{ETag: "B"})
	c.Get(ctx, "a") // a is now most-recently-used
	c.Set(ctx, "c", &Entry{ETag: "C"})

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted as the least-recently-used entry")

	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_GetMissing(t *testing.T) {
	c := NewLRU(4)
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}
