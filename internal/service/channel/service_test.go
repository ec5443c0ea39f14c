package channel

import (
	"context"
	"sync"
	"testing"

	"team_chat_server/internal/dao/database/databasetest"
	"team_chat_server/internal/dao/database/repository"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	Name   event.Name
	UserID uuid.UUID
	Data   any
}

// MockDispatcher 按调用顺序记录事件
type MockDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
}

func (m *MockDispatcher) record(name event.Name, user uuid.UUID, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatched{Name: name, UserID: user, Data: data})
}

func (m *MockDispatcher) named(name event.Name) []dispatched {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dispatched
	for _, c := range m.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockDispatcher) ChannelCreated(_ context.Context, ch event.Channel, memberIDs []uuid.UUID) {
	m.record(event.ChannelCreated, uuid.Nil, memberIDs)
}

func (m *MockDispatcher) ChannelCreatedForUser(_ context.Context, ch event.Channel, userID uuid.UUID) {
	m.record(event.ChannelCreated, userID, ch)
}

func (m *MockDispatcher) ChannelUpdated(_ context.Context, ch event.Channel) {
	m.record(event.ChannelUpdated, uuid.Nil, ch)
}

func (m *MockDispatcher) ChannelDeleted(_ context.Context, ch event.Channel) {
	m.record(event.ChannelDeleted, uuid.Nil, ch)
}

func (m *MockDispatcher) MemberAdded(_ context.Context, mem event.Member) {
	m.record(event.MemberAdded, mem.UserID, mem)
}

func (m *MockDispatcher) MemberRemoved(_ context.Context, mem event.Member) {
	m.record(event.MemberRemoved, mem.UserID, mem)
}

// MockSubs 记录每个用户当前订阅的频道
type MockSubs struct {
	subs map[uuid.UUID]map[uuid.UUID]bool
}

func (m *MockSubs) SubscribeUserChannel(u, c uuid.UUID) int {
	if m.subs == nil {
		m.subs = map[uuid.UUID]map[uuid.UUID]bool{}
	}
	if m.subs[u] == nil {
		m.subs[u] = map[uuid.UUID]bool{}
	}
	m.subs[u][c] = true
	return 1
}

func (m *MockSubs) UnsubscribeUserChannel(u, c uuid.UUID) int {
	delete(m.subs[u], c)
	return 1
}

type MockPoster struct {
	CreateSystemMessageFunc func(ctx context.Context, channelID uuid.UUID, message string, props map[string]any) (*event.Post, error)
	messages                []string
}

func (m *MockPoster) CreateSystemMessage(ctx context.Context, channelID uuid.UUID, message string, props map[string]any) (*event.Post, error) {
	m.messages = append(m.messages, message)
	if m.CreateSystemMessageFunc != nil {
		return m.CreateSystemMessageFunc(ctx, channelID, message, props)
	}
	return &event.Post{ChannelID: channelID, Message: message}, nil
}

type MockUnread struct {
	forgotten []uuid.UUID
}

func (m *MockUnread) ForgetChannel(_ context.Context, userID uuid.UUID, _ *model.Channel) {
	m.forgotten = append(m.forgotten, userID)
}

type env struct {
	repos  *repository.Repositories
	svc    *channelService
	disp   *MockDispatcher
	subs   *MockSubs
	poster *MockPoster
	unread *MockUnread
	team   uuid.UUID
	a, b   *model.User
}

func newEnv(t *testing.T) *env {
	repos := databasetest.New(t)
	e := &env{
		repos:  repos,
		disp:   &MockDispatcher{},
		subs:   &MockSubs{},
		poster: &MockPoster{},
		unread: &MockUnread{},
		team:   uuid.New(),
	}
	e.svc = NewChannelService(repos, e.disp, e.subs, e.poster, e.unread)
	e.a = databasetest.CreateUser(t, repos, model.RoleMember)
	e.b = databasetest.CreateUser(t, repos, model.RoleMember)
	for _, u := range []*model.User{e.a, e.b} {
		require.NoError(t, repos.TeamMember.Create(context.Background(), &model.TeamMember{TeamID: e.team, UserID: u.ID}))
	}
	return e
}

func TestCreateChannel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ch, err := e.svc.CreateChannel(ctx, e.a.ID, CreateInput{
		TeamID:    e.team,
		Name:      " Town-Square ",
		Type:      model.ChannelPublic,
		MemberIDs: []uuid.UUID{e.b.ID, e.b.ID, e.a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "town-square", ch.Name)
	assert.Equal(t, "town-square", ch.DisplayName)

	m, err := e.repos.ChannelMember.Find(ctx, ch.ID, e.a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelRoleAdmin, m.Role)
	ids, err := e.repos.ChannelMember.ListUserIDs(ctx, ch.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{e.a.ID, e.b.ID}, ids)

	assert.True(t, e.subs.subs[e.b.ID][ch.ID])
	created := e.disp.named(event.ChannelCreated)
	require.Len(t, created, 1)
	assert.ElementsMatch(t, []uuid.UUID{e.a.ID, e.b.ID}, created[0].Data)

	_, err = e.svc.CreateChannel(ctx, e.a.ID, CreateInput{TeamID: e.team, Name: "town-square", Type: model.ChannelPublic})
	assert.True(t, errorx.HasCode(err, errorx.CodeConflict))
}

func TestCreateChannelRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateChannel(ctx, e.a.ID, CreateInput{TeamID: e.team, Name: "", Type: model.ChannelPublic})
	assert.True(t, errorx.HasCode(err, errorx.CodeInvalidParam))
	_, err = e.svc.CreateChannel(ctx, e.a.ID, CreateInput{TeamID: e.team, Name: "x", Type: model.ChannelDirect})
	assert.True(t, errorx.HasCode(err, errorx.CodeInvalidParam))
	_, err = e.svc.CreateChannel(ctx, e.a.ID, CreateInput{TeamID: e.team, Name: "dm_x", Type: model.ChannelPublic})
	assert.True(t, errorx.HasCode(err, errorx.CodeInvalidParam))
	_, err = e.svc.CreateChannel(ctx, e.a.ID, CreateInput{TeamID: uuid.New(), Name: "x", Type: model.ChannelPublic})
	assert.True(t, errorx.HasCode(err, errorx.CodeForbidden))
}

func TestDirectChannelIsUniqueAndRestoresMembers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ch, created, err := e.svc.GetOrCreateDirectChannel(ctx, e.team, e.a.ID, e.b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.DirectChannelName(e.a.ID, e.b.ID), ch.Name)

	again, created, err := e.svc.GetOrCreateDirectChannel(ctx, e.team, e.b.ID, e.a.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ch.ID, again.ID)
	assert.Empty(t, e.disp.named(event.ChannelCreated)[1:], "existing membership emits nothing")

	removed, err := e.repos.ChannelMember.Remove(ctx, ch.ID, e.b.ID)
	require.NoError(t, err)
	require.True(t, removed)
	delete(e.subs.subs[e.b.ID], ch.ID)

	stored, err := e.repos.Channel.FindByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.EnsureDirectMembership(ctx, stored))

	perUser := e.disp.named(event.ChannelCreated)[1:]
	require.Len(t, perUser, 1)
	assert.Equal(t, e.b.ID, perUser[0].UserID)
	assert.True(t, e.subs.subs[e.b.ID][ch.ID])

	_, _, err = e.svc.GetOrCreateDirectChannel(ctx, e.team, e.a.ID, e.a.ID)
	assert.True(t, errorx.HasCode(err, errorx.CodeInvalidParam))
}

func TestMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ch := databasetest.CreateChannel(t, e.repos, e.team, model.ChannelPublic, "general", e.a.ID)

	assert.ErrorIs(t, e.svc.CheckAccess(ctx, e.b.ID, ch.ID), errorx.ErrNotMember)
	require.NoError(t, e.svc.AddMember(ctx, e.b.ID, ch.ID, e.b.ID), "public channel allows self join")
	require.NoError(t, e.svc.CheckAccess(ctx, e.b.ID, ch.ID))
	require.Len(t, e.disp.named(event.MemberAdded), 1)
	assert.True(t, e.subs.subs[e.b.ID][ch.ID])
	assert.Equal(t, []string{"@" + e.b.Username + " joined the channel"}, e.poster.messages)

	require.NoError(t, e.svc.AddMember(ctx, e.a.ID, ch.ID, e.b.ID))
	assert.Len(t, e.disp.named(event.MemberAdded), 1, "adding an existing member is a no-op")

	assert.ErrorIs(t, e.svc.RemoveMember(ctx, e.b.ID, ch.ID, e.a.ID), errorx.ErrForbidden)
	require.NoError(t, e.svc.RemoveMember(ctx, e.b.ID, ch.ID, e.b.ID))
	require.Len(t, e.disp.named(event.MemberRemoved), 1)
	assert.False(t, e.subs.subs[e.b.ID][ch.ID])
	assert.Equal(t, []uuid.UUID{e.b.ID}, e.unread.forgotten)
	assert.ErrorIs(t, e.svc.CheckAccess(ctx, e.b.ID, ch.ID), errorx.ErrNotMember)
}

func TestPrivateChannelRequiresMemberToAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ch := databasetest.CreateChannel(t, e.repos, e.team, model.ChannelPrivate, "secret", e.a.ID)

	assert.ErrorIs(t, e.svc.AddMember(ctx, e.b.ID, ch.ID, e.b.ID), errorx.ErrNotMember)
	require.NoError(t, e.svc.AddMember(ctx, e.a.ID, ch.ID, e.b.ID))
	added := e.disp.named(event.MemberAdded)
	require.Len(t, added, 1)
	assert.Equal(t, e.a.ID, added[0].Data.(event.Member).ActorID)
}

func TestSystemAdminCanRemove(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := databasetest.CreateUser(t, e.repos, model.RoleSystemAdmin)
	ch := databasetest.CreateChannel(t, e.repos, e.team, model.ChannelPublic, "general", e.a.ID, e.b.ID)

	require.NoError(t, e.svc.RemoveMember(ctx, admin.ID, ch.ID, e.b.ID))
	require.Len(t, e.disp.named(event.MemberRemoved), 1)
}

func TestUpdateAndArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ch := databasetest.CreateChannel(t, e.repos, e.team, model.ChannelPublic, "general", e.a.ID, e.b.ID)

	header := "welcome"
	out, err := e.svc.UpdateChannel(ctx, e.b.ID, ch.ID, UpdateInput{Header: &header})
	require.NoError(t, err)
	assert.Equal(t, "welcome", out.Header)
	require.Len(t, e.disp.named(event.ChannelUpdated), 1)

	_, err = e.svc.UpdateChannel(ctx, e.b.ID, ch.ID, UpdateInput{})
	assert.True(t, errorx.HasCode(err, errorx.CodeInvalidParam))

	assert.ErrorIs(t, e.svc.ArchiveChannel(ctx, e.b.ID, ch.ID), errorx.ErrForbidden)
	require.NoError(t, e.svc.ArchiveChannel(ctx, e.a.ID, ch.ID), "creator can archive")
	deleted := e.disp.named(event.ChannelDeleted)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].Data.(event.Channel).IsArchived)

	_, err = e.svc.UpdateChannel(ctx, e.a.ID, ch.ID, UpdateInput{Header: &header})
	assert.True(t, errorx.HasCode(err, errorx.CodeForbidden))
}
