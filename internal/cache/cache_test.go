package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	store := NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "dioramacast_k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "dioramacast_k", []byte(`{"a":1}`), time.Minute))
	val, ok, err := store.Get(ctx, "dioramacast_k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(val))

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "dioramacast_k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire")
}

func TestRedisStore_PingAndType(t *testing.T) {
	store, mr := newRedisStore(t)
	assert.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, TypeRedis, store.Type())

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("http://not-redis")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	value := []byte("payload")
	require.NoError(t, store.Set(ctx, "k", value, 50*time.Millisecond))
	value[0] = 'X'

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", string(got), "stored value must not alias caller's slice")

	time.Sleep(80 * time.Millisecond)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)

	assert.NoError(t, store.Ping(ctx))
	assert.Equal(t, TypeMemory, store.Type())
	assert.NoError(t, store.Close())
}
