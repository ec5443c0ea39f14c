package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu   sync.Mutex
	envs []event.Envelope
}

func (r *recordingHub) Broadcast(env event.Envelope) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return 1
}

type MockExporter struct {
	ExportFunc func(ctx context.Context, env event.Envelope) error
}

func (m *MockExporter) Export(ctx context.Context, env event.Envelope) error {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, env)
	}
	return nil
}

func TestPostEventsTargetWholeChannel(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	ctx := context.Background()
	c := uuid.New()
	author := uuid.New()

	d.PostCreated(ctx, event.Post{ID: uuid.New(), ChannelID: c, UserID: author, Seq: 7})
	require.Len(t, hub.envs, 1)
	env := hub.envs[0]
	assert.Equal(t, event.MessageCreated, env.Event)
	assert.Equal(t, event.ToChannel(c), env.Target, "author is not excluded")
	require.NotNil(t, env.ChannelID)
	assert.Equal(t, c, *env.ChannelID)
}

func TestThreadReplyOrdersReplyBeforeRootUpdate(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	c := uuid.New()
	root := uuid.New()

	d.ThreadReplyCreated(context.Background(),
		event.Post{ID: uuid.New(), ChannelID: c, RootPostID: &root, Seq: 3},
		event.PostUpdate{ID: root, ChannelID: c, ReplyCountInc: 1})

	require.Len(t, hub.envs, 2)
	assert.Equal(t, event.ThreadReplyCreated, hub.envs[0].Event)
	assert.Equal(t, event.MessageUpdated, hub.envs[1].Event)
	upd := hub.envs[1].Data.(event.PostUpdate)
	assert.Equal(t, root, upd.ID)
	assert.Equal(t, int64(1), upd.ReplyCountInc)
}

func TestTypingExcludesSender(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	c, u := uuid.New(), uuid.New()

	d.Typing(context.Background(), c, event.Typing{UserID: u}, false)
	d.Typing(context.Background(), c, event.Typing{UserID: u}, true)

	require.Len(t, hub.envs, 2)
	assert.Equal(t, event.UserTyping, hub.envs[0].Event)
	assert.Equal(t, event.UserTypingStop, hub.envs[1].Event)
	for _, env := range hub.envs {
		assert.Equal(t, u, env.Target.Exclude)
		assert.Equal(t, event.TargetChannel, env.Target.Kind)
	}
}

func TestChannelCreatedRouting(t *testing.T) {
	team := uuid.New()
	members := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("public goes to team", func(t *testing.T) {
		hub := &recordingHub{}
		New(hub).ChannelCreated(context.Background(), event.Channel{ID: uuid.New(), TeamID: team, Type: model.ChannelPublic}, members)
		require.Len(t, hub.envs, 1)
		assert.Equal(t, event.ToTeam(team), hub.envs[0].Target)
	})

	t.Run("private fans out per member", func(t *testing.T) {
		hub := &recordingHub{}
		New(hub).ChannelCreated(context.Background(), event.Channel{ID: uuid.New(), TeamID: team, Type: model.ChannelPrivate}, members)
		require.Len(t, hub.envs, 2)
		assert.Equal(t, event.ToUser(members[0]), hub.envs[0].Target)
		assert.Equal(t, event.ToUser(members[1]), hub.envs[1].Target)
	})
}

func TestMemberEventsReachChannelAndTarget(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	c, u := uuid.New(), uuid.New()

	d.MemberAdded(context.Background(), event.Member{ChannelID: c, UserID: u})
	require.Len(t, hub.envs, 2)
	assert.Equal(t, event.ToChannel(c).Excluding(u), hub.envs[0].Target)
	assert.Equal(t, event.ToUser(u), hub.envs[1].Target)
	assert.Equal(t, event.MemberAdded, hub.envs[1].Event)
}

func TestGlobalEvents(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	u := uuid.New()

	d.UserPresence(context.Background(), u, model.PresenceOffline)
	d.ConfigUpdated(context.Background(), "websocket", map[string]any{"max_sessions_per_user": 3})
	d.UserUpdated(context.Background(), event.User{ID: u}, true)

	require.Len(t, hub.envs, 3)
	assert.Equal(t, event.ToAll(), hub.envs[0].Target)
	assert.Equal(t, event.Presence{UserID: u, Status: model.PresenceOffline}, hub.envs[0].Data)
	assert.Equal(t, event.ToAll(), hub.envs[1].Target)
	assert.Equal(t, event.ToAll().Excluding(u), hub.envs[2].Target)
}

func TestUnreadCountsGoToUser(t *testing.T) {
	hub := &recordingHub{}
	d := New(hub)
	u, c, team := uuid.New(), uuid.New(), uuid.New()

	d.UnreadCountsUpdated(context.Background(), u, event.UnreadCounts{ChannelID: c, TeamID: team, UnreadCount: 1})
	require.Len(t, hub.envs, 1)
	assert.Equal(t, event.ToUser(u), hub.envs[0].Target)
	assert.Equal(t, event.UnreadCountsUpdated, hub.envs[0].Event)
}

func TestExportFailureDoesNotBlockDelivery(t *testing.T) {
	hub := &recordingHub{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), nil)
	exported := 0
	exp := &MockExporter{ExportFunc: func(ctx context.Context, env event.Envelope) error {
		exported++
		return errors.New("broker down")
	}}
	d := New(hub, WithExporter(exp), WithMetrics(m))

	d.PostDeleted(context.Background(), uuid.New(), uuid.New())
	assert.Len(t, hub.envs, 1)
	assert.Equal(t, 1, exported)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("message_deleted")))
}
