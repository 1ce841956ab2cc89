package keystore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewUnwrapCache(time.Minute)
	defer cache.Close()

	cache.Set("k1", []byte("material-one"))

	got := cache.Get("k1")
	require.NotNil(t, got)
	assert.Equal(t, []byte("material-one"), got.Bytes())

	assert.Nil(t, cache.Get("k2"))

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewUnwrapCache(10 * time.Millisecond)
	defer cache.Close()

	cache.Set("k1", []byte("material"))
	time.Sleep(30 * time.Millisecond)

	assert.Nil(t, cache.Get("k1"))
}

func TestCacheDeleteClearsMaterial(t *testing.T) {
	cache := NewUnwrapCache(time.Minute)
	defer cache.Close()

	cache.Set("k1", []byte("material"))
	held := cache.Get("k1")
	require.NotNil(t, held)

	cache.Delete("k1")
	assert.Nil(t, cache.Get("k1"))
	assert.Equal(t, 0, held.Len())
}

func TestCacheCloseClearsEverything(t *testing.T) {
	cache := NewUnwrapCache(time.Minute)

	cache.Set("k1", []byte("one"))
	cache.Set("k2", []byte("two"))
	cache.Close()

	assert.Nil(t, cache.Get("k1"))
	assert.Nil(t, cache.Get("k2"))
}
