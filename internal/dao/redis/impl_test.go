package redis

import (
	"context"
	"sort"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"team_chat_server/pkg/errorx"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 1, 4)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestRedisCacheSetMaxOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	v, err := rc.SetMax(ctx, "channel:c:last_seq", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = rc.SetMax(ctx, "channel:c:last_seq", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	got, err := mr.Get("channel:c:last_seq")
	require.NoError(t, err)
	assert.Equal(t, "5", got)

	v, err = rc.SetMax(ctx, "channel:c:last_seq", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestRedisCacheCounters(t *testing.T) {
	ctx := context.Background()
	rc, _ := newTestRedis(t)

	_, found, err := rc.GetInt(ctx, "unread:u:c")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := rc.Incr(ctx, "unread:u:c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = rc.IncrBy(ctx, "unread:u:c", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	n, err = rc.Decr(ctx, "unread:u:c")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, rc.SetInt(ctx, "unread:u:c", 7))
	v, found, err := rc.GetInt(ctx, "unread:u:c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), v)

	require.NoError(t, rc.Delete(ctx, "unread:u:c", "missing"))
	_, found, err = rc.GetInt(ctx, "unread:u:c")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheMGetSkipsMissesAndGarbage(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	require.NoError(t, mr.Set("c1", "1"))
	require.NoError(t, mr.Set("c2", "4"))
	require.NoError(t, mr.Set("c3", "not-a-number"))

	got, err := rc.MGetInt(ctx, "c1", "c2", "c3", "c4")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 1, "c2": 4}, got)

	got, err = rc.MGetInt(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	// 超过单次 SCAN 的 COUNT，覆盖多轮游标
	for i := 0; i < 1200; i++ {
		require.NoError(t, mr.Set("unread:u:"+strconv.Itoa(i), "1"))
	}
	require.NoError(t, mr.Set("unread_team:u:t", "3"))
	require.NoError(t, mr.Set("unread:other:c", "2"))
	require.NoError(t, mr.Set("channel:c:last_seq", "9"))

	require.NoError(t, rc.DeleteByPattern(ctx, "unread:u:*"))
	require.NoError(t, rc.DeleteByPattern(ctx, "unread_team:u:*"))

	keys := mr.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"channel:c:last_seq", "unread:other:c"}, keys)
}

func TestRedisCacheErrorsAreCacheErrors(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	require.NoError(t, mr.Set("k", "abc"))

	_, _, err := rc.GetInt(ctx, "k")
	assert.True(t, errorx.HasCode(err, errorx.CodeCacheError))

	_, err = rc.Incr(ctx, "k")
	assert.True(t, errorx.HasCode(err, errorx.CodeCacheError))
}

func TestRedisCacheSubmitTask(t *testing.T) {
	rc, _ := newTestRedis(t)
	done := make(chan struct{})
	rc.SubmitTask(func() { close(done) })
	<-done
}
