package datalist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_Retention(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newCache[int](1, 10*time.Second)
	c.now = func() time.Time { return now }

	c.add(1, 10, true)
	c.add(2, 20, false)

	// Over capacity but retained.
	_, _, ok := c.evictable()
	require.False(t, ok)

	now = now.Add(5 * time.Second)
	_, ok = c.get(1)
	require.True(t, ok)

	now = now.Add(6 * time.Second)
	id, e, ok := c.evictable()
	require.True(t, ok)
	require.EqualValues(t, 2, id)
	require.Equal(t, 20, e.val)
	c.remove(id)

	_, _, ok = c.evictable()
	require.False(t, ok)

	var dirty []uint64
	require.NoError(t, c.forEachDirty(func(id uint64, _ *cacheEntry[int]) error {
		dirty = append(dirty, id)
		return nil
	}))
	require.Equal(t, []uint64{1}, dirty)
}
