package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/storage"
)

type recordingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *recordingObserver) CacheHit(cacheType, keyType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[cacheType+"/"+keyType]++
}

func (o *recordingObserver) CacheMiss(cacheType, keyType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[cacheType+"/"+keyType]++
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCache_L1Only(t *testing.T) {
	ctx := context.Background()
	obs := newRecordingObserver()
	c := New(Options{Size: 32, TTL: time.Minute, Observer: obs})

	_, ok := c.Get(ctx, "filter:1")
	assert.False(t, ok)

	c.Set(ctx, "filter:1", []byte(`{"id_filtro":1}`))
	v, ok := c.Get(ctx, "filter:1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id_filtro":1}`, string(v))

	c.Delete(ctx, "filter:1")
	_, ok = c.Get(ctx, "filter:1")
	assert.False(t, ok)

	assert.Equal(t, 1, obs.hits["l1/filter"])
	assert.Equal(t, 2, obs.misses["l1/filter"])

	s := c.Stats()
	assert.Equal(t, int64(1), s.L1Hits)
	assert.Equal(t, int64(2), s.Misses)
	assert.InDelta(t, 1.0/3.0, s.HitRate, 1e-9)
}

func TestCache_RedisSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	a := New(Options{TTL: time.Minute, Redis: client})
	obs := newRecordingObserver()
	b := New(Options{TTL: time.Minute, Redis: client, Observer: obs})

	a.Set(ctx, "category:7", []byte("x"))
	assert.True(t, mr.Exists("filtros:category:7"))
	assert.Equal(t, time.Minute, mr.TTL("filtros:category:7"))

	v, ok := b.Get(ctx, "category:7")
	require.True(t, ok)
	assert.Equal(t, "x", string(v))
	assert.Equal(t, 1, obs.hits["redis/category"])
	assert.Equal(t, int64(1), b.Stats().L2Hits)

	// promoted into b's L1
	mr.Del("filtros:category:7")
	_, ok = b.Get(ctx, "category:7")
	assert.True(t, ok)
}

func TestCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := New(Options{TTL: time.Minute, Redis: client})

	c.Set(ctx, "filter:1", []byte("1"))
	c.Set(ctx, "filter:2", []byte("2"))
	c.Set(ctx, "category:1", []byte("c"))

	c.DeletePrefix(ctx, "filter:")

	_, ok := c.Get(ctx, "filter:1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "category:1")
	assert.True(t, ok)
	assert.Equal(t, []string{"filtros:category:1"}, mr.Keys())
}

func TestCache_RedisFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := New(Options{TTL: time.Minute, Redis: client})

	mr.Close()
	c.Set(ctx, "filter:1", []byte("1"))
	v, ok := c.Get(ctx, "filter:1")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	_, ok = c.Get(ctx, "filter:2")
	assert.False(t, ok)
}

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewRedisClient(ctx, storage.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = NewRedisClient(ctx, storage.Config{RedisURL: "redis://" + mr.Addr(), RedisPoolSize: 4})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.Equal(t, 4, client.Options().PoolSize)

	_, err = NewRedisClient(ctx, storage.Config{RedisURL: "://bad"})
	assert.Error(t, err)
}
