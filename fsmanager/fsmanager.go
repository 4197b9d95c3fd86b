package fsmanager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/optizone/rose/cache"
)

// DefaultMaxCacheEntrySize bounds which objects are eligible to be
// tee'd into the cache on read. Objects at or above this size are always
// served straight from disk and never cached, so one large object cannot
// single-handedly dominate cache memory.
const DefaultMaxCacheEntrySize = 4 << 20 // 4 MiB

// Item identifies a single object for Preload.
type Item struct {
	ID  uuid.UUID
	Ext string
}

// FsManager stores objects under a root directory, addressed by UUID, and
// fronts reads with a cache.Cache.
//
// FsManager is safe for concurrent use.
type FsManager struct {
	root              string
	cache             *cache.Cache
	maxCacheEntrySize uint64
	logger            *slog.Logger

	preloadGroup singleflight.Group
}

// Option configures an FsManager constructed by New.
type Option func(*FsManager)

// WithMaxCacheEntrySize overrides DefaultMaxCacheEntrySize.
func WithMaxCacheEntrySize(n uint64) Option {
	return func(m *FsManager) { m.maxCacheEntrySize = n }
}

// WithLogger sets the logger used for diagnostic messages. A nil logger
// (the default) discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(m *FsManager) { m.logger = logger }
}

// New creates an FsManager rooted at dir, backed by c. c must not be nil.
func New(dir string, c *cache.Cache, opts ...Option) *FsManager {
	m := &FsManager{
		root:              dir,
		cache:             c,
		maxCacheEntrySize: DefaultMaxCacheEntrySize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *FsManager) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// Get returns a stream of the object identified by id and ext.
//
// A cache hit is served as an in-memory reader with no disk access. A cache
// miss opens the object on disk and, if it is smaller than the configured
// per-entry cache ceiling, tees the read into the cache so a subsequent Get
// can be served from memory. The returned stream must be closed by the
// caller; the cache is only populated once Close observes a full, clean
// read from the start of the object.
func (m *FsManager) Get(ctx context.Context, id uuid.UUID, ext string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if payload, ok := m.cache.Get(id); ok {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}

	path := objectPath(m.root, id, ext)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrIoFailure, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrIoFailure, err)
	}

	tee := uint64(info.Size()) < m.maxCacheEntrySize
	return newDiskStream(f, info.Size(), tee, id, m.cache), nil
}

// Insert writes the bytes read from src as a new object under id and ext.
//
// Insert never overwrites an existing object: if one already exists at the
// derived path, ErrAlreadyExists is returned and src is left partially or
// fully drained but discarded. Insert does not populate the cache; the
// object is picked up by the cache the next time it is read via Get.
func (m *FsManager) Insert(ctx context.Context, id uuid.UUID, ext string, src io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := objectPath(m.root, id, ext)
	return writeAtomic(shardDir(m.root, id), path, src)
}

// Preload warms the cache for every item in items whose object exists on
// disk and is small enough to be cached. Items that do not exist, or that
// exceed the per-entry cache ceiling, are skipped without error. Reads of
// the same id and extension that overlap in time, within one call or across
// concurrent Preload calls, share a single disk read via singleflight.
//
// Preload returns the first unexpected filesystem error encountered; a
// missing object is never treated as an error. On success, Preload enqueues
// a ForcePublish before it returns but does not wait for the writer to
// apply it, so a Get issued right after Preload returns may not yet observe
// the preloaded objects.
func (m *FsManager) Preload(ctx context.Context, items []Item) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.preloadOne(item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	m.cache.ForcePublish()
	return nil
}

func (m *FsManager) preloadOne(item Item) error {
	key := item.ID.String() + "." + item.Ext
	_, err, _ := m.preloadGroup.Do(key, func() (any, error) {
		if _, ok := m.cache.Get(item.ID); ok {
			return nil, nil
		}

		path := objectPath(m.root, item.ID, item.Ext)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrIoFailure, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIoFailure, err)
		}
		if uint64(info.Size()) >= m.maxCacheEntrySize {
			return nil, nil
		}

		payload, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIoFailure, err)
		}
		m.cache.Insert(item.ID, payload)
		return nil, nil
	})
	return err
}
