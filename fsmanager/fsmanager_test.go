package fsmanager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optizone/rose/cache"
)

func newTestManager(t *testing.T, opts ...Option) (*FsManager, *cache.Cache) {
	t.Helper()
	c := cache.New(10 * time.Millisecond)
	t.Cleanup(c.Close)
	return New(t.TempDir(), c, opts...), c
}

func TestObjectPathShardsOnNodeBytes(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("12345678-1234-1234-1234-0a0bcdef0123")
	path := objectPath("/root", id, "bin")

	// The node field (the last 6 bytes of the UUID) is 0a:0b:cd:ef:01:23;
	// the 1st and 2nd node bytes (absolute indices 10, 11) are 0x0a, 0x0b.
	assert.Equal(t, filepath.Join("/root", "a", "b", id.String()+".bin"), path)
}

func TestInsertThenGetRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)
	id := uuid.New()
	payload := []byte("round trip payload")

	require.NoError(t, m.Insert(ctx, id, "txt", bytes.NewReader(payload)))

	rc, err := m.Get(ctx, id, "txt")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)
	_, err := m.Get(ctx, uuid.New(), "txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertDuplicateReturnsAlreadyExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)
	id := uuid.New()

	require.NoError(t, m.Insert(ctx, id, "txt", bytes.NewReader([]byte("first"))))
	err := m.Insert(ctx, id, "txt", bytes.NewReader([]byte("second")))
	require.ErrorIs(t, err, ErrAlreadyExists)

	rc, err := m.Get(ctx, id, "txt")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got, "losing writer must never clobber the winner's data")
}

func TestInsertAbortedStreamLeavesNoObject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)
	id := uuid.New()

	err := m.Insert(ctx, id, "txt", failingReader{})
	require.ErrorIs(t, err, ErrStreamAborted)

	_, err = m.Get(ctx, id, "txt")
	assert.ErrorIs(t, err, ErrNotFound, "an aborted insert must not leave a partial object visible")

	entries, err := os.ReadDir(shardDir(m.root, id))
	if err == nil {
		assert.Empty(t, entries, "temp file must be cleaned up after an aborted write")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestGetPopulatesCacheOnFullRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, c := newTestManager(t)
	id := uuid.New()
	payload := []byte("cache me please")
	require.NoError(t, m.Insert(ctx, id, "txt", bytes.NewReader(payload)))

	rc, err := m.Get(ctx, id, "txt")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	c.ForcePublish()
	time.Sleep(20 * time.Millisecond)

	cached, ok := c.Get(id)
	require.True(t, ok, "a fully drained stream must populate the cache")
	assert.Equal(t, payload, cached)
}

func TestGetAbandonedReadDoesNotPopulateCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, c := newTestManager(t)
	id := uuid.New()
	payload := bytes.Repeat([]byte("x"), 4096)
	require.NoError(t, m.Insert(ctx, id, "bin", bytes.NewReader(payload)))

	rc, err := m.Get(ctx, id, "bin")
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	require.NoError(t, rc.Close(), "closing early, before EOF")

	c.ForcePublish()
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(id)
	assert.False(t, ok, "an early-aborted read must never poison the cache with a partial object")
}

func TestGetOversizeObjectNeverCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, c := newTestManager(t, WithMaxCacheEntrySize(8))
	id := uuid.New()
	payload := []byte("this payload exceeds the tiny cap")
	require.NoError(t, m.Insert(ctx, id, "bin", bytes.NewReader(payload)))

	rc, err := m.Get(ctx, id, "bin")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	c.ForcePublish()
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(id)
	assert.False(t, ok, "an object at or above the per-entry cap must never be cached")
}

func TestPreloadWarmsCacheAndSkipsMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, c := newTestManager(t)
	present := uuid.New()
	missing := uuid.New()
	payload := []byte("preloaded")
	require.NoError(t, m.Insert(ctx, present, "txt", bytes.NewReader(payload)))

	err := m.Preload(ctx, []Item{
		{ID: present, Ext: "txt"},
		{ID: missing, Ext: "txt"},
	})
	require.NoError(t, err, "a missing item must be skipped, not treated as an error")

	cached, ok := c.Get(present)
	require.True(t, ok)
	assert.Equal(t, payload, cached)

	_, ok = c.Get(missing)
	assert.False(t, ok)
}
