package cache

import (
	"context"
	"testing"
	"time"

	"emarknews/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newRedisStore(t *testing.T) (*Store, *miniredis.Miniredis, *testClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(NewRedisBackendWithClient(client), WithClock(clock.Now), WithFallbackCapacity(8))
	return store, mr, clock
}

func TestStoreFreshThenStaleThenMiss(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newRedisStore(t)

	require.True(t, store.Set(ctx, "news:world:full", []byte(`{"a":1}`), 1, time.Minute, 5*time.Minute))

	v, f := store.Get(ctx, "news:world:full")
	assert.Equal(t, Fresh, f)
	assert.JSONEq(t, `{"a":1}`, string(v))

	clock.Advance(2 * time.Minute)
	_, f = store.Get(ctx, "news:world:full")
	assert.Equal(t, Stale, f)

	clock.Advance(5 * time.Minute)
	_, f = store.Get(ctx, "news:world:full")
	assert.Equal(t, Miss, f)
}

func TestStoreRejectsOlderSequenceOnRedis(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newRedisStore(t)

	require.True(t, store.Set(ctx, "news:world:full", []byte(`"seq10"`), 10, time.Minute, 0))
	assert.False(t, store.Set(ctx, "news:world:full", []byte(`"seq9"`), 9, time.Minute, 0))

	v, _ := store.Get(ctx, "news:world:full")
	assert.Equal(t, `"seq10"`, string(v))

	assert.True(t, store.Set(ctx, "news:world:full", []byte(`"seq11"`), 11, time.Minute, 0))
	v, _ = store.Get(ctx, "news:world:full")
	assert.Equal(t, `"seq11"`, string(v))
}

func TestStoreFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)
	mr.Close()

	assert.True(t, store.Set(ctx, "news:tech:fast", []byte(`"x"`), 1, time.Minute, 0))
	v, f := store.Get(ctx, "news:tech:fast")
	assert.Equal(t, Fresh, f)
	assert.Equal(t, `"x"`, string(v))

	// Older writes are still rejected by the fallback.
	assert.False(t, store.Set(ctx, "news:tech:fast", []byte(`"y"`), 0, time.Minute, 0))
}

func TestStoreWithoutPrimary(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.Set(ctx, "news:a:fast", []byte(`1`), 1, time.Minute, 0)
	_, f := store.Get(ctx, "news:a:fast")
	assert.Equal(t, Fresh, f)
}

func TestStoreEvictsMalformedEntry(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	mr.HSet("news:world:full", "seq", "1", "val", "{not json")
	_, f := store.Get(ctx, "news:world:full")
	assert.Equal(t, Miss, f)
	assert.False(t, mr.Exists("news:world:full"))
}

func TestStoreClearFlushesBothTiers(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	store.Set(ctx, "news:world:fast", []byte(`1`), 1, time.Minute, 0)
	store.Set(ctx, "news:world:full", []byte(`1`), 1, time.Minute, time.Minute)
	store.Set(ctx, "news:tech:full", []byte(`1`), 1, time.Minute, time.Minute)
	mr.Set("unrelated", "keep")

	store.Clear(ctx)

	for _, key := range []string{"news:world:fast", "news:world:full", "news:tech:full"} {
		_, f := store.Get(ctx, key)
		assert.Equal(t, Miss, f, key)
	}
	assert.True(t, mr.Exists("unrelated"))
}

func TestTieredCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newRedisStore(t)
	tiers := NewTieredCache(store, TTLPolicy{FastTTL: time.Minute, FullTTL: 10 * time.Minute, StaleWindow: 30 * time.Minute}, nil)

	entry := types.NewEntry("world", []types.Article{{ID: "a", Title: "A"}}, false, 3, clock.now)
	require.True(t, tiers.Put(ctx, types.TierFull, entry))

	got, f := tiers.Lookup(ctx, "world", types.TierFull)
	require.Equal(t, Fresh, f)
	assert.Equal(t, uint64(3), got.Sequence)
	assert.False(t, got.Stale)
	assert.Len(t, got.Data, 1)

	clock.Advance(11 * time.Minute)
	got, f = tiers.Lookup(ctx, "world", types.TierFull)
	require.Equal(t, Stale, f)
	assert.True(t, got.Stale)

	// fast tier has no stale window
	require.True(t, tiers.Put(ctx, types.TierFast, types.NewEntry("world", nil, true, 4, clock.now)))
	clock.Advance(2 * time.Minute)
	_, f = tiers.Lookup(ctx, "world", types.TierFast)
	assert.Equal(t, Miss, f)

	tiers.Invalidate(ctx, "world")
	_, f = tiers.Lookup(ctx, "world", types.TierFull)
	assert.Equal(t, Miss, f)
}

func TestTieredCachePutStale(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newRedisStore(t)
	tiers := NewTieredCache(store, TTLPolicy{FastTTL: time.Minute, FullTTL: time.Minute, StaleWindow: time.Hour}, nil)

	require.True(t, tiers.PutStale(ctx, types.NewEntry("tech", nil, false, 1, clock.now)))
	clock.Advance(time.Millisecond)
	_, f := tiers.Lookup(ctx, "tech", types.TierFull)
	assert.Equal(t, Stale, f)
}
