package tui

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/epalmerini/rmqtools/internal/index"
)

const (
	indexCacheSize = 16
	indexCacheTTL  = 5 * time.Minute
)

// indexCache keeps built indexes of stored queues, keyed by queue id, so
// reopening a queue skips the fetch and the item build.
type indexCache struct {
	lru *expirable.LRU[uint64, *index.Index]
}

func newIndexCache(size int, ttl time.Duration) *indexCache {
	return &indexCache{lru: expirable.NewLRU[uint64, *index.Index](size, nil, ttl)}
}

func (c *indexCache) get(queueID uint64) (*index.Index, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(queueID)
}

func (c *indexCache) put(queueID uint64, x *index.Index) {
	if c == nil {
		return
	}
	c.lru.Add(queueID, x)
}

// invalidate drops queueID after a mutation on the server.
func (c *indexCache) invalidate(queueID uint64) {
	if c == nil {
		return
	}
	c.lru.Remove(queueID)
}
