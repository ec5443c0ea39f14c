package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	u := uuid.MustParse("0190a0b0-0000-7000-8000-000000000001")
	c := uuid.MustParse("0190a0b0-0000-7000-8000-000000000002")
	team := uuid.MustParse("0190a0b0-0000-7000-8000-000000000003")

	assert.Equal(t, "unread:0190a0b0-0000-7000-8000-000000000001:0190a0b0-0000-7000-8000-000000000002", UnreadKey(u, c))
	assert.Equal(t, "unread_team:0190a0b0-0000-7000-8000-000000000001:0190a0b0-0000-7000-8000-000000000003", TeamUnreadKey(u, team))
	assert.Equal(t, "channel:0190a0b0-0000-7000-8000-000000000002:last_seq", LastSeqKey(c))
}

func TestMemoryStoreSetMaxOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := s.SetMax(ctx, "k", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = s.SetMax(ctx, "k", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = s.SetMax(ctx, "k", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestMemoryStoreCounters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, found, err := s.GetInt(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	n, _ := s.Incr(ctx, "a")
	assert.Equal(t, int64(1), n)
	n, _ = s.IncrBy(ctx, "a", 4)
	assert.Equal(t, int64(5), n)
	n, _ = s.Decr(ctx, "a")
	assert.Equal(t, int64(4), n)

	require.NoError(t, s.SetInt(ctx, "b", 7))
	got, err := s.MGetInt(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 4, "b": 7}, got)

	require.NoError(t, s.Delete(ctx, "a", "nope"))
	_, found, _ = s.GetInt(ctx, "a")
	assert.False(t, found)
}

func TestMemoryStoreDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := uuid.New()
	other := uuid.New()
	c := uuid.New()
	team := uuid.New()

	_ = s.SetInt(ctx, UnreadKey(u, c), 2)
	_ = s.SetInt(ctx, TeamUnreadKey(u, team), 2)
	_ = s.SetInt(ctx, UnreadKey(other, c), 1)
	_ = s.SetInt(ctx, LastSeqKey(c), 10)

	for _, p := range UserUnreadPatterns(u) {
		require.NoError(t, s.DeleteByPattern(ctx, p))
	}
	assert.Equal(t, 2, s.Len())
	_, found, _ := s.GetInt(ctx, UnreadKey(other, c))
	assert.True(t, found)
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")
	s.SetFail(boom)

	_, err := s.Incr(ctx, "a")
	assert.ErrorIs(t, err, boom)
	_, _, err = s.GetInt(ctx, "a")
	assert.ErrorIs(t, err, boom)

	s.SetFail(nil)
	_, err = s.Incr(ctx, "a")
	assert.NoError(t, err)
}
