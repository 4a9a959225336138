package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Kodiak/pkg/hashing"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

func sampleCaps(name string) *datatypes.ClientCapabilities {
	return &datatypes.ClientCapabilities{
		Browser:   datatypes.BrowserIdentity{Name: name, Version: 100},
		Timestamp: time.Now(),
	}
}

func TestGetPut(t *testing.T) {
	c := New()

	_, ok := c.Get("sig-a")
	assert.False(t, ok)

	want := sampleCaps("chrome")
	c.Put("sig-a", want)

	got, ok := c.Get("sig-a")
	require.True(t, ok)
	assert.Same(t, want, got, "cache returns the stored pointer unchanged")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestPutOverwritesSameSignature(t *testing.T) {
	c := New()
	c.Put("sig", sampleCaps("chrome"))
	c.Put("sig", sampleCaps("firefox"))

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get("sig")
	require.True(t, ok)
	assert.Equal(t, "firefox", got.Browser.Name)
}

func TestEvictionBound(t *testing.T) {
	const maxSize, prune = 50, 10
	c := New(WithMaxSize(maxSize), WithPruneAmount(prune))

	// Property: no matter how many inserts, size never exceeds maxSize
	// after a Put returns.
	for i := 0; i < maxSize+prune*3; i++ {
		c.Put(fmt.Sprintf("sig-%d", i), sampleCaps("chrome"))
		assert.LessOrEqual(t, c.Len(), maxSize)
	}
	assert.Greater(t, c.Stats().Evictions, int64(0))
}

func TestPruneRemovesLeastRecentlyUsed(t *testing.T) {
	c := New(WithMaxSize(3), WithPruneAmount(1))

	c.Put("a", sampleCaps("a"))
	c.Put("b", sampleCaps("b"))
	c.Put("c", sampleCaps("c"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", sampleCaps("d"))

	_, ok = c.Get("a")
	assert.True(t, ok, "recently used entry survives")
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry was evicted")
}

func TestTTLExpiryIsAMiss(t *testing.T) {
	c := New(WithTTL(10 * time.Millisecond))
	c.Put("sig", sampleCaps("chrome"))

	_, ok := c.Get("sig")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)

	_, ok = c.Get("sig")
	assert.False(t, ok, "expired entry reads as a miss")
	assert.Equal(t, 0, c.Len(), "expired entry is removed on access")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New(WithTTL(0))
	c.Put("sig", sampleCaps("chrome"))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("sig")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New()
	c.Put("a", sampleCaps("a"))
	c.Put("b", sampleCaps("b"))
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestHasherOption(t *testing.T) {
	h, err := hashing.New(hashing.AlgorithmXXHash)
	require.NoError(t, err)

	c := New(WithHasher(h))
	c.Put("sig", sampleCaps("chrome"))
	_, ok := c.Get("sig")
	assert.True(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithMaxSize(100), WithPruneAmount(10))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				sig := fmt.Sprintf("sig-%d", (g*31+i)%150)
				if i%3 == 0 {
					c.Put(sig, sampleCaps("chrome"))
				} else {
					c.Get(sig)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 100)
}
