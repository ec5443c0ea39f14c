package hub

import (
	"encoding/json"
	"errors"
	"testing"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(maxPerUser, queueSize int) *Hub {
	return New(Options{MaxSessionsPerUser: maxPerUser, QueueSize: queueSize})
}

func mustConnect(t *testing.T, h *Hub, u uuid.UUID) Connection {
	t.Helper()
	c, err := h.Connect(u, "user-"+u.String()[:8])
	require.NoError(t, err)
	return c
}

// drain 非阻塞读出队列中的全部信封
func drain(t *testing.T, ch <-chan []byte) []event.Wire {
	t.Helper()
	var out []event.Wire
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				return out
			}
			var w event.Wire
			require.NoError(t, json.Unmarshal(raw, &w))
			out = append(out, w)
		default:
			return out
		}
	}
}

func isClosed(ch <-chan []byte) bool {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestConnectQuota(t *testing.T) {
	h := newTestHub(2, 10)
	u := uuid.New()

	first := mustConnect(t, h, u)
	assert.True(t, first.FirstSession)
	second := mustConnect(t, h, u)
	assert.False(t, second.FirstSession)

	_, err := h.Connect(u, "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorx.ErrQuotaExceeded))
	assert.Equal(t, errorx.CodeQuotaExceeded, errorx.GetCode(err))
	assert.Equal(t, 2, h.UserSessionCount(u))

	// 其他用户不受影响
	mustConnect(t, h, uuid.New())

	// 放宽上限后可以继续连接
	h.SetMaxSessionsPerUser(3)
	mustConnect(t, h, u)
	assert.Equal(t, 3, h.UserSessionCount(u))
}

func TestPresenceFollowsSessions(t *testing.T) {
	h := newTestHub(5, 10)
	u := uuid.New()
	assert.Equal(t, model.PresenceOffline, h.Presence(u))

	a := mustConnect(t, h, u)
	b := mustConnect(t, h, u)
	assert.Equal(t, model.PresenceOnline, h.Presence(u))

	res := h.Disconnect(a.SessionID)
	assert.True(t, res.Found)
	assert.False(t, res.WentOffline)
	assert.Equal(t, model.PresenceOnline, h.Presence(u))

	res = h.Disconnect(b.SessionID)
	assert.True(t, res.WentOffline)
	assert.Equal(t, u, res.UserID)
	assert.Equal(t, model.PresenceOffline, h.Presence(u))
	assert.Empty(t, h.OnlineUsers())

	// 重复断开是 no-op
	res = h.Disconnect(b.SessionID)
	assert.False(t, res.Found)
	assert.False(t, res.WentOffline)
	assert.True(t, isClosed(b.Outbound))
}

func TestSetPresenceRules(t *testing.T) {
	h := newTestHub(5, 10)
	u := uuid.New()

	assert.False(t, h.SetPresence(u, model.PresenceAway), "no session, cannot be away")
	assert.True(t, h.SetPresence(u, model.PresenceOffline))

	mustConnect(t, h, u)
	assert.True(t, h.SetPresence(u, model.PresenceDnd))
	assert.Equal(t, model.PresenceDnd, h.Presence(u))
	assert.False(t, h.SetPresence(u, model.PresenceOffline), "live session, cannot be offline")
	assert.False(t, h.SetPresence(u, model.Presence("busy")))
	assert.Equal(t, model.PresenceDnd, h.Presence(u))
}

func TestBroadcastRouting(t *testing.T) {
	h := newTestHub(5, 10)
	userA, userB, userC := uuid.New(), uuid.New(), uuid.New()
	channel, team := uuid.New(), uuid.New()

	a1 := mustConnect(t, h, userA)
	a2 := mustConnect(t, h, userA)
	b := mustConnect(t, h, userB)
	c := mustConnect(t, h, userC)

	for _, s := range []Connection{a1, a2, b} {
		require.True(t, h.SubscribeChannel(s.SessionID, channel))
	}
	require.True(t, h.SubscribeTeam(b.SessionID, team))
	require.True(t, h.SubscribeTeam(c.SessionID, team))

	t.Run("channel without exclusion", func(t *testing.T) {
		n := h.Broadcast(event.NewInChannel(event.MessageCreated, channel, event.ToChannel(channel), nil))
		assert.Equal(t, 3, n)
		assert.Len(t, drain(t, a1.Outbound), 1)
		assert.Len(t, drain(t, a2.Outbound), 1)
		assert.Len(t, drain(t, b.Outbound), 1)
		assert.Empty(t, drain(t, c.Outbound))
	})

	t.Run("channel excluding user", func(t *testing.T) {
		n := h.Broadcast(event.New(event.UserTyping, event.ToChannel(channel).Excluding(userA), nil))
		assert.Equal(t, 1, n)
		assert.Empty(t, drain(t, a1.Outbound))
		assert.Empty(t, drain(t, a2.Outbound))
		got := drain(t, b.Outbound)
		require.Len(t, got, 1)
		assert.Equal(t, "user_typing", got[0].Event)
	})

	t.Run("team", func(t *testing.T) {
		n := h.Broadcast(event.New(event.ChannelCreated, event.ToTeam(team), nil))
		assert.Equal(t, 2, n)
		assert.Len(t, drain(t, b.Outbound), 1)
		assert.Len(t, drain(t, c.Outbound), 1)
		assert.Empty(t, drain(t, a1.Outbound))
	})

	t.Run("user", func(t *testing.T) {
		n := h.Broadcast(event.New(event.UnreadCountsUpdated, event.ToUser(userA), nil))
		assert.Equal(t, 2, n)
		assert.Len(t, drain(t, a1.Outbound), 1)
		assert.Len(t, drain(t, a2.Outbound), 1)
	})

	t.Run("all", func(t *testing.T) {
		n := h.Broadcast(event.New(event.ConfigUpdated, event.ToAll(), nil))
		assert.Equal(t, 4, n)
		for _, s := range []Connection{a1, a2, b, c} {
			assert.Len(t, drain(t, s.Outbound), 1)
		}
	})

	t.Run("single session", func(t *testing.T) {
		assert.True(t, h.Deliver(a2.SessionID, event.New(event.Pong, event.Target{}, nil)))
		assert.Empty(t, drain(t, a1.Outbound))
		assert.Len(t, drain(t, a2.Outbound), 1)
		assert.False(t, h.Deliver("missing", event.New(event.Pong, event.Target{}, nil)))
	})

	t.Run("unsubscribe", func(t *testing.T) {
		require.True(t, h.UnsubscribeChannel(b.SessionID, channel))
		require.True(t, h.UnsubscribeChannel(b.SessionID, channel), "idempotent")
		n := h.Broadcast(event.New(event.MessageCreated, event.ToChannel(channel), nil))
		assert.Equal(t, 2, n)
		assert.Empty(t, drain(t, b.Outbound))
		drain(t, a1.Outbound)
		drain(t, a2.Outbound)
	})
}

func TestSubscribeUserChannel(t *testing.T) {
	h := newTestHub(5, 10)
	u := uuid.New()
	channel := uuid.New()
	s1 := mustConnect(t, h, u)
	s2 := mustConnect(t, h, u)

	assert.Equal(t, 2, h.SubscribeUserChannel(u, channel))
	assert.True(t, h.IsSubscribed(s1.SessionID, channel))
	assert.True(t, h.IsSubscribed(s2.SessionID, channel))
	assert.Equal(t, 0, h.SubscribeUserChannel(uuid.New(), channel))

	assert.Equal(t, 2, h.UnsubscribeUserChannel(u, channel))
	assert.False(t, h.IsSubscribed(s1.SessionID, channel))
	assert.Empty(t, h.channelSubs)
}

func TestSubscribeUnknownSession(t *testing.T) {
	h := newTestHub(5, 10)
	assert.False(t, h.SubscribeChannel("nope", uuid.New()))
	assert.False(t, h.SubscribeTeam("nope", uuid.New()))
	assert.Empty(t, h.channelSubs)
	assert.Empty(t, h.teamSubs)
}

func TestSlowConsumerEvicted(t *testing.T) {
	const queue = 100
	h := newTestHub(5, queue)
	slow, fast := uuid.New(), uuid.New()
	channel := uuid.New()

	s := mustConnect(t, h, slow)
	f := mustConnect(t, h, fast)
	h.SubscribeChannel(s.SessionID, channel)
	h.SubscribeChannel(f.SessionID, channel)

	for i := 0; i < queue; i++ {
		assert.Equal(t, 2, h.Broadcast(event.New(event.MessageCreated, event.ToChannel(channel), nil)))
		drain(t, f.Outbound)
	}

	// 第 101 条入队失败，慢连接被关闭，快连接照常收到
	assert.Equal(t, 1, h.Broadcast(event.New(event.MessageCreated, event.ToChannel(channel), nil)))
	assert.Len(t, drain(t, f.Outbound), 1)

	received := 0
	for range s.Outbound {
		received++
	}
	assert.Equal(t, queue, received)
	assert.Equal(t, CloseEvicted, s.Reason())
	assert.Equal(t, CloseNone, f.Reason())

	// 清理由连接自己完成，不覆盖驱逐原因
	res := h.Disconnect(s.SessionID)
	assert.True(t, res.WentOffline)
	assert.Equal(t, CloseEvicted, s.Reason())
	assert.Equal(t, model.PresenceOffline, h.Presence(slow))

	// 被关闭后的广播不再计数
	assert.Equal(t, 1, h.Broadcast(event.New(event.MessageCreated, event.ToChannel(channel), nil)))
}

func TestBroadcastPreservesOrderPerRecipient(t *testing.T) {
	h := newTestHub(5, 100)
	channel := uuid.New()
	s := mustConnect(t, h, uuid.New())
	h.SubscribeChannel(s.SessionID, channel)

	for seq := int64(1); seq <= 50; seq++ {
		h.Broadcast(event.NewInChannel(event.MessageCreated, channel, event.ToChannel(channel), map[string]int64{"seq": seq}))
	}
	got := drain(t, s.Outbound)
	require.Len(t, got, 50)
	for i, w := range got {
		var data map[string]int64
		require.NoError(t, json.Unmarshal(w.Data, &data))
		assert.Equal(t, int64(i+1), data["seq"])
	}
}

func TestCloseAllClosesEveryQueue(t *testing.T) {
	h := newTestHub(5, 10)
	a := mustConnect(t, h, uuid.New())
	b := mustConnect(t, h, uuid.New())
	h.CloseAll()
	assert.True(t, isClosed(a.Outbound))
	assert.True(t, isClosed(b.Outbound))
	assert.Equal(t, CloseShutdown, a.Reason())
	assert.Equal(t, CloseShutdown, b.Reason())
	assert.Equal(t, 0, h.Broadcast(event.New(event.ConfigUpdated, event.ToAll(), nil)))
}

func TestDisconnectRecordsReason(t *testing.T) {
	h := newTestHub(5, 10)
	a := mustConnect(t, h, uuid.New())
	h.Disconnect(a.SessionID)
	assert.True(t, isClosed(a.Outbound))
	assert.Equal(t, CloseDisconnected, a.Reason())
	assert.Equal(t, "disconnected", a.Reason().String())
}
