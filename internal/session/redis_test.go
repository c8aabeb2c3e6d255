package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStorage) {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := NewRedisStorage(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "t:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return mr, st
}

func TestRedisStorage_GetSetDelete(t *testing.T) {
	mr, st := newTestRedis(t)

	val, err := st.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, st.Set("abc", []byte("payload"), time.Minute))
	assert.True(t, mr.Exists("t:abc"))
	assert.Equal(t, time.Minute, mr.TTL("t:abc"))

	val, err = st.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)

	require.NoError(t, st.Delete("abc"))
	assert.False(t, mr.Exists("t:abc"))
}

func TestRedisStorage_Expiry(t *testing.T) {
	mr, st := newTestRedis(t)

	require.NoError(t, st.Set("k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	val, err := st.Get("k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorage_ResetKeepsForeignKeys(t *testing.T) {
	mr, st := newTestRedis(t)
	require.NoError(t, mr.Set("other", "x"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, st.Set(k, []byte("1"), 0))
	}

	require.NoError(t, st.Reset())

	assert.Equal(t, []string{"other"}, mr.Keys())
}

func TestNewRedisStorage_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStorage(context.Background(), RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestNewRedisStorageFromClient_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	st := NewRedisStorageFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer st.Close()

	require.NoError(t, st.Set("id", []byte("v"), 0))
	assert.True(t, mr.Exists("docqr:sess:id"))
}
