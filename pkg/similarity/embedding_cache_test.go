package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingCache_PutThenGetHits(t *testing.T) {
	c := NewEmbeddingCache(2)
	clip := []byte("clip-a")
	vec := []float64{0.1, 0.2, 0.3}

	c.Put(clip, vec)
	got, ok := c.Get(clip)
	assert.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestEmbeddingCache_MissReturnsFalse(t *testing.T) {
	c := NewEmbeddingCache(2)
	_, ok := c.Get([]byte("never-stored"))
	assert.False(t, ok)
}

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Put([]byte("a"), []float64{1})
	c.Put([]byte("b"), []float64{2})
	c.Get([]byte("a")) // touch a, making b the LRU entry
	c.Put([]byte("c"), []float64{3})

	_, aOK := c.Get([]byte("a"))
	_, bOK := c.Get([]byte("b"))
	_, cOK := c.Get([]byte("c"))
	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
}
