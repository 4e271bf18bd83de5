package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/shoplens/searchcore/internal/core/ports"
)

const (
	DefaultEmbeddingCacheSize = 1000

	// Upper bound for a detached cache fill. The fill outlives any single
	// caller's deadline so one query's budget cannot fail another's lookup.
	fillTimeout = 10 * time.Second
)

// CachedEmbedder wraps an Embedder with a content-hash-keyed LRU cache.
// Singleflight collapses concurrent lookups for the same key without
// blocking unrelated keys. The shared fill runs on a context detached from
// the initiating caller: followers coalesced onto the same key must not
// inherit the leader's cancellation, and each waiter still honors its own
// context while waiting.
type CachedEmbedder struct {
	inner ports.Embedder
	cache *lru.Cache[string, []float32]
	group singleflight.Group
}

func NewCachedEmbedder(inner ports.Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{
		inner: inner,
		cache: cache,
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		vec, err := c.inner.EmbedQuery(fillCtx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, vec)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
