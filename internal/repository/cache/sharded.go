package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

// KV is the typed key/value store the read-through repos are written against.
type KV[V any] interface {
	Put(key string, v V)
	Get(key string) (V, bool)
	Delete(key string)
	Len() int
}

type item[V any] struct {
	v        V
	deadline time.Time
}

func (it item[V]) stale(at time.Time) bool {
	return !it.deadline.IsZero() && at.After(it.deadline)
}

type bucket[V any] struct {
	sync.RWMutex
	items map[string]item[V]
}

type settings struct {
	shards int
	ttl    time.Duration
}

type Option func(*settings)

// WithShards sets the bucket count. Anything that is not a power of two falls back to 16.
func WithShards(n int) Option { return func(s *settings) { s.shards = n } }

// WithTTL expires entries ttl after their last Put. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option { return func(s *settings) { s.ttl = ttl } }

// ShardedCache spreads keys over power-of-two buckets by fnv32a so that concurrent
// catalog lookups for different products rarely contend on one lock.
type ShardedCache[V any] struct {
	buckets []bucket[V]
	mask    uint32
	ttl     time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

func NewShardedCache[V any](opts ...Option) *ShardedCache[V] {
	cfg := settings{shards: 16}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.shards <= 0 || cfg.shards&(cfg.shards-1) != 0 {
		cfg.shards = 16
	}

	c := &ShardedCache[V]{
		buckets: make([]bucket[V], cfg.shards),
		mask:    uint32(cfg.shards - 1),
		ttl:     cfg.ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for i := range c.buckets {
		c.buckets[i].items = make(map[string]item[V])
	}
	if c.ttl > 0 {
		go c.sweepEvery(c.ttl / 2)
	}
	return c
}

func (c *ShardedCache[V]) sweepEvery(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (c *ShardedCache[V]) Close() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *ShardedCache[V]) bucketOf(key string) *bucket[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &c.buckets[h.Sum32()&c.mask]
}

func (c *ShardedCache[V]) Put(key string, v V) {
	it := item[V]{v: v}
	if c.ttl > 0 {
		it.deadline = c.now().Add(c.ttl)
	}
	b := c.bucketOf(key)
	b.Lock()
	b.items[key] = it
	b.Unlock()
}

// Get drops a stale entry on the way out unless a newer Put replaced it meanwhile.
func (c *ShardedCache[V]) Get(key string) (V, bool) {
	var zero V
	b := c.bucketOf(key)
	b.RLock()
	it, ok := b.items[key]
	b.RUnlock()
	if !ok {
		return zero, false
	}
	if !it.stale(c.now()) {
		return it.v, true
	}

	b.Lock()
	if cur, ok := b.items[key]; ok && cur.deadline.Equal(it.deadline) {
		delete(b.items, key)
	}
	b.Unlock()
	return zero, false
}

func (c *ShardedCache[V]) Delete(key string) {
	b := c.bucketOf(key)
	b.Lock()
	delete(b.items, key)
	b.Unlock()
}

// Len counts entries that have not gone stale, swept or not.
func (c *ShardedCache[V]) Len() int {
	at := c.now()
	live := 0
	for i := range c.buckets {
		b := &c.buckets[i]
		b.RLock()
		for _, it := range b.items {
			if !it.stale(at) {
				live++
			}
		}
		b.RUnlock()
	}
	return live
}

func (c *ShardedCache[V]) sweep() {
	at := c.now()
	for i := range c.buckets {
		b := &c.buckets[i]
		b.Lock()
		for k, it := range b.items {
			if it.stale(at) {
				delete(b.items, k)
			}
		}
		b.Unlock()
	}
}
