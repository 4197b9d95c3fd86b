// Package cache provides a concurrent, read-optimized, time-expiring cache
// keyed by UUID.
//
// Cache is double-buffered: readers acquire a snapshot published by a single
// background writer task, so Get never blocks on a concurrent Insert,
// Refresh, or Sweep. Mutations are funneled through a bounded op channel and
// applied by the writer in submission order; readers therefore always see a
// consistent snapshot corresponding to some prefix of the applied ops, never
// a torn or partially-applied entry.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the fixed age past which an untouched entry is evicted at
// the next Sweep. It bounds stale-hit latency after an entry goes cold
// without requiring an eager per-entry timer.
const DefaultTTL = 3 * time.Second

// opChannelCapacity is the suggested bound on the writer's op queue. Readers
// and writers never block on it: a full channel drops the op (see
// enqueue) because the filesystem is authoritative
// and cache correctness does not depend on any single op landing.
const opChannelCapacity = 128

// entry is a cached payload and the time it was last observed live.
type entry struct {
	lastTouched time.Time
	payload     []byte
}

// snapshot is the immutable map published to readers. Once stored behind
// readPtr it is never mutated again; the writer only ever mutates its own
// private working copy and publishes a fresh snapshot copy.
type snapshot map[uuid.UUID]entry

// Cache is a concurrent UUID-keyed byte cache with TTL eviction.
//
// Cache is safe for concurrent use. The zero value is not usable; construct
// one with New.
type Cache struct {
	ops     chan op
	readPtr atomic.Pointer[snapshot]

	ttl             time.Duration
	publishInterval time.Duration
	maxBytes        uint64
	logger          *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Cache constructed by New.
type Option func(*Cache)

// WithTTL overrides DefaultTTL, the age past which an untouched entry is
// swept.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxBytes sets an aggregate resident-byte ceiling enforced during
// Sweep. Entries are evicted oldest-last_touched-first until the cache is
// at or below the ceiling. Zero (the default) disables aggregate
// enforcement; only per-entry TTL eviction applies.
func WithMaxBytes(n uint64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// WithLogger sets the logger used to report dropped ops under channel
// pressure. A nil logger (the default) discards these reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a Cache and starts its background writer task.
//
// publishInterval is the minimum interval between automatic publishes; a
// Sweep op is appended to the batch and the accumulated ops are published
// whenever an arriving op finds more than publishInterval elapsed since the
// last publish. ForcePublish bypasses this schedule entirely.
func New(publishInterval time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ops:             make(chan op, opChannelCapacity),
		ttl:             DefaultTTL,
		publishInterval: publishInterval,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	empty := make(snapshot)
	c.readPtr.Store(&empty)

	c.wg.Add(1)
	go c.run()
	return c
}

// log returns the configured logger, falling back to a discard logger.
func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Get returns the payload for id if a live entry exists in the currently
// published snapshot. Get is non-blocking and wait-free: it never waits on
// the writer.
//
// As a side effect, Get enqueues a Refresh(id) op on a best-effort basis;
// the refresh need not be observed by an immediately following Get.
func (c *Cache) Get(id uuid.UUID) ([]byte, bool) {
	snap := *c.readPtr.Load()
	e, ok := snap[id]
	if !ok || time.Since(e.lastTouched) > c.ttl {
		return nil, false
	}
	c.enqueue(op{kind: opRefresh, id: id})
	return e.payload, true
}

// Insert enqueues payload under id. The entry becomes visible to readers
// only after the next publish; Insert itself never blocks on that publish.
func (c *Cache) Insert(id uuid.UUID, payload []byte) {
	c.enqueue(op{kind: opInsert, id: id, payload: payload})
}

// Remove enqueues removal of id. Like Insert, this is fire-and-forget.
func (c *Cache) Remove(id uuid.UUID) {
	c.enqueue(op{kind: opRemove, id: id})
}

// ForcePublish enqueues a request for the writer to publish the currently
// accumulated operations immediately, regardless of the periodic schedule.
func (c *Cache) ForcePublish() {
	c.enqueue(op{kind: opForcePublish})
}

// enqueue submits an op without blocking. A full channel is treated as
// CachePressure: the op is dropped and logged, since the filesystem remains
// authoritative and a missed refresh or insert never corrupts the cache.
func (c *Cache) enqueue(o op) {
	select {
	case c.ops <- o:
	default:
		c.log().Warn("cache: op channel full, dropping op", "op", o.kind, "uuid", o.id)
	}
}

// Close stops the background writer task. Close does not drain pending ops;
// it is intended for process shutdown, not for quiescing the cache.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

// run is the single background writer task. It owns the only mutable copy
// of the cache contents; readers only ever see immutable snapshots
// published by publish.
func (c *Cache) run() {
	defer c.wg.Done()

	live := make(snapshot)
	lastPublish := time.Now()

	for {
		select {
		case <-c.done:
			return
		case o := <-c.ops:
			if o.kind == opForcePublish {
				c.publish(live)
				lastPublish = time.Now()
				continue
			}
			c.apply(live, o)
			if time.Since(lastPublish) > c.publishInterval {
				c.sweep(live)
				c.publish(live)
				lastPublish = time.Now()
			}
		}
	}
}

// apply mutates live in place according to o.
func (c *Cache) apply(live snapshot, o op) {
	switch o.kind {
	case opInsert:
		live[o.id] = entry{lastTouched: time.Now(), payload: o.payload}
	case opRefresh:
		if e, ok := live[o.id]; ok {
			e.lastTouched = time.Now()
			live[o.id] = e
		}
	case opRemove:
		delete(live, o.id)
	case opSweep:
		c.sweep(live)
	}
}

// sweep removes entries whose last_touched is older than the TTL, then, if
// an aggregate ceiling is configured, evicts further entries
// oldest-last_touched-first until resident bytes are at or below it.
func (c *Cache) sweep(live snapshot) {
	now := time.Now()
	for id, e := range live {
		if now.Sub(e.lastTouched) > c.ttl {
			delete(live, id)
		}
	}
	if c.maxBytes == 0 {
		return
	}
	var total uint64
	for _, e := range live {
		total += uint64(len(e.payload))
	}
	if total <= c.maxBytes {
		return
	}
	order := make([]uuid.UUID, 0, len(live))
	for id := range live {
		order = append(order, id)
	}
	sortByAge(order, live)
	for _, id := range order {
		if total <= c.maxBytes {
			break
		}
		total -= uint64(len(live[id].payload))
		delete(live, id)
	}
}

// publish copies live into a fresh immutable snapshot and installs it as
// the readable snapshot. Once published, the old snapshot is reclaimed by
// the garbage collector once the last reader holding a reference to it
// drops that reference; no explicit epoch tracking is required.
func (c *Cache) publish(live snapshot) {
	snap := make(snapshot, len(live))
	for id, e := range live {
		snap[id] = e
	}
	c.readPtr.Store(&snap)
}

// sortByAge orders ids oldest-last_touched-first.
func sortByAge(ids []uuid.UUID, live snapshot) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && live[ids[j]].lastTouched.Before(live[ids[j-1]].lastTouched); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
