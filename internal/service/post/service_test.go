package post

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
	Name event.Name
	Data any
}

// MockDispatcher 按调用顺序记录事件
type MockDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
}

func (m *MockDispatcher) record(name event.Name, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatched{Name: name, Data: data})
}

func (m *MockDispatcher) names() []event.Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Name, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Name
	}
	return out
}

func (m *MockDispatcher) PostCreated(_ context.Context, p event.Post) {
	m.record(event.MessageCreated, p)
}

func (m *MockDispatcher) ThreadReplyCreated(_ context.Context, reply event.Post, root event.PostUpdate) {
	m.record(event.ThreadReplyCreated, reply)
	m.record(event.MessageUpdated, root)
}

func (m *MockDispatcher) PostUpdated(_ context.Context, upd event.PostUpdate) {
	m.record(event.MessageUpdated, upd)
}

func (m *MockDispatcher) PostDeleted(_ context.Context, channelID, postID uuid.UUID) {
	m.record(event.MessageDeleted, event.PostDeleted{ID: postID, ChannelID: channelID})
}

func (m *MockDispatcher) ReactionAdded(_ context.Context, r event.Reaction) {
	m.record(event.ReactionAdded, r)
}

func (m *MockDispatcher) ReactionRemoved(_ context.Context, r event.Reaction) {
	m.record(event.ReactionRemoved, r)
}

// MockUnread Func 为空时只计数
type MockUnread struct {
	OnPostCreatedFunc func(ctx context.Context, ch *model.Channel, authorID uuid.UUID, seq int64) error
	OnPostDeletedFunc func(ctx context.Context, ch *model.Channel, post *model.Post) error
	created           []int64
	deleted           int
}

func (m *MockUnread) OnPostCreated(ctx context.Context, ch *model.Channel, authorID uuid.UUID, seq int64) error {
	m.created = append(m.created, seq)
	if m.OnPostCreatedFunc != nil {
		return m.OnPostCreatedFunc(ctx, ch, authorID, seq)
	}
	return nil
}

func (m *MockUnread) OnPostDeleted(ctx context.Context, ch *model.Channel, post *model.Post) error {
	m.deleted++
	if m.OnPostDeletedFunc != nil {
		return m.OnPostDeletedFunc(ctx, ch, post)
	}
	return nil
}

type MockDirect struct {
	EnsureFunc func(ctx context.Context, ch *model.Channel) error
	calls      int
}

func (m *MockDirect) EnsureDirectMembership(ctx context.Context, ch *model.Channel) error {
	m.calls++
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, ch)
	}
	return nil
}

type env struct {
	repos  *repository.Repositories
	disp   *MockDispatcher
	unread *MockUnread
	svc    *postService
	a, b   *model.User
	admin  *model.User
	ch     *model.Channel
}

func newEnv(t *testing.T) *env {
	repos := databasetest.New(t)
	e := &env{repos: repos, disp: &MockDispatcher{}, unread: &MockUnread{}}
	e.admin = databasetest.CreateUser(t, repos, model.RoleSystemAdmin)
	e.a = databasetest.CreateUser(t, repos, model.RoleMember)
	e.b = databasetest.CreateUser(t, repos, model.RoleMember)
	e.ch = databasetest.CreateChannel(t, repos, uuid.New(), model.ChannelPublic, "general", e.a.ID, e.b.ID)
	e.svc = NewPostService(repos, e.disp, e.unread)
	return e
}

func TestCreatePost_AssignsSequentialSeq(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		p, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "hi", ClientMsgID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), p.Seq)
		assert.Equal(t, "c1", p.ClientMsgID)
		assert.Equal(t, e.a.Username, p.Username)
	}
	assert.Equal(t, []int64{1, 2, 3}, e.unread.created)
	assert.Equal(t, []event.Name{event.MessageCreated, event.MessageCreated, event.MessageCreated}, e.disp.names())

	ch, err := e.repos.Channel.FindByID(ctx, e.ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ch.LastPostSeq)
}

func TestCreatePost_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	outsider := databasetest.CreateUser(t, e.repos, model.RoleMember)

	_, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "   "})
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	_, err = e.svc.CreatePost(ctx, outsider.ID, e.ch.ID, CreateInput{Message: "hi"})
	assert.ErrorIs(t, err, errorx.ErrNotMember)

	_, err = e.svc.CreatePost(ctx, e.a.ID, uuid.New(), CreateInput{Message: "hi"})
	assert.True(t, errorx.IsNotFound(err))

	missing := uuid.New()
	_, err = e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "hi", RootPostID: &missing})
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	_, err = e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{FileIDs: []uuid.UUID{uuid.New()}})
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	require.NoError(t, e.repos.Channel.Update(ctx, e.ch.ID, map[string]any{"is_archived": true}))
	_, err = e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "hi"})
	assert.Equal(t, errorx.CodeForbidden, errorx.GetCode(err))

	assert.Empty(t, e.disp.names(), "rejected posts are not broadcast")
	assert.Empty(t, e.unread.created)
}

func TestCreatePost_ThreadReply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	root, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "root"})
	require.NoError(t, err)
	reply, err := e.svc.CreatePost(ctx, e.b.ID, e.ch.ID, CreateInput{Message: "reply", RootPostID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.RootPostID)
	assert.Equal(t, root.ID, *reply.RootPostID)

	// 回复的回复挂到根消息下
	nested, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "nested", RootPostID: &reply.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, *nested.RootPostID)

	assert.Equal(t, []event.Name{
		event.MessageCreated,
		event.ThreadReplyCreated, event.MessageUpdated,
		event.ThreadReplyCreated, event.MessageUpdated,
	}, e.disp.names())
	upd := e.disp.calls[2].Data.(event.PostUpdate)
	assert.Equal(t, root.ID, upd.ID)
	assert.Equal(t, int64(1), upd.ReplyCountInc)
	assert.NotNil(t, upd.LastReplyAt)

	stored, err := e.repos.Post.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ReplyCount)
}

func TestCreatePost_MentionsAndFiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := &model.FileInfo{UploaderID: e.a.ID, Name: "a.png", MimeType: "image/png", Size: 10}
	require.NoError(t, e.repos.File.Create(ctx, f))

	p, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{
		Message: "hey @Bob and @alice, @bob again",
		FileIDs: []uuid.UUID{f.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, p.Props["mentions"])
	require.Len(t, p.Files, 1)
	assert.Equal(t, "a.png", p.Files[0].Name)
}

func TestCreatePost_DirectChannelRestoresMembership(t *testing.T) {
	e := newEnv(t)
	direct := &MockDirect{}
	e.svc.SetDirectMembership(direct)
	dm := databasetest.CreateChannel(t, e.repos, uuid.New(), model.ChannelDirect, model.DirectChannelName(e.a.ID, e.b.ID), e.a.ID, e.b.ID)

	_, err := e.svc.CreatePost(context.Background(), e.a.ID, dm.ID, CreateInput{Message: "psst"})
	require.NoError(t, err)
	_, err = e.svc.CreatePost(context.Background(), e.a.ID, e.ch.ID, CreateInput{Message: "public"})
	require.NoError(t, err)
	assert.Equal(t, 1, direct.calls)
}

func TestCreateSystemMessage(t *testing.T) {
	e := newEnv(t)
	p, err := e.svc.CreateSystemMessage(context.Background(), e.ch.ID, "@x joined the channel", nil)
	require.NoError(t, err)
	assert.Equal(t, e.admin.ID, p.UserID)
	assert.Equal(t, SystemJoinLeave, p.Props["type"])
}

func TestEditAndDelete_Authorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "draft"})
	require.NoError(t, err)

	_, err = e.svc.EditPost(ctx, e.b.ID, p.ID, "hijack")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	upd, err := e.svc.EditPost(ctx, e.a.ID, p.ID, "final @carol")
	require.NoError(t, err)
	assert.Equal(t, "final @carol", *upd.Message)
	assert.NotNil(t, upd.EditedAt)

	assert.ErrorIs(t, e.svc.DeletePost(ctx, e.b.ID, p.ID), errorx.ErrForbidden)
	require.NoError(t, e.svc.DeletePost(ctx, e.admin.ID, p.ID))
	assert.Equal(t, 1, e.unread.deleted)

	stored, err := e.repos.Post.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())

	_, err = e.svc.EditPost(ctx, e.a.ID, p.ID, "again")
	assert.True(t, errorx.IsNotFound(err))
	assert.Equal(t, event.MessageDeleted, e.disp.names()[len(e.disp.names())-1])
}

func TestSetPinned(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "pin me"})
	require.NoError(t, err)

	upd, err := e.svc.SetPinned(ctx, e.b.ID, p.ID, true)
	require.NoError(t, err)
	assert.True(t, *upd.IsPinned)
	stored, err := e.repos.Post.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPinned)

	outsider := databasetest.CreateUser(t, e.repos, model.RoleMember)
	_, err = e.svc.SetPinned(ctx, outsider.ID, p.ID, false)
	assert.ErrorIs(t, err, errorx.ErrNotMember)
}

func TestReactions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.svc.CreatePost(ctx, e.a.ID, e.ch.ID, CreateInput{Message: "react"})
	require.NoError(t, err)

	r, err := e.svc.AddReaction(ctx, e.b.ID, p.ID, ":thumbsup:")
	require.NoError(t, err)
	assert.Equal(t, "thumbsup", r.EmojiName)
	_, err = e.svc.AddReaction(ctx, e.b.ID, p.ID, "thumbsup")
	require.NoError(t, err)

	require.NoError(t, e.svc.RemoveReaction(ctx, e.b.ID, p.ID, "thumbsup"))
	require.NoError(t, e.svc.RemoveReaction(ctx, e.b.ID, p.ID, "thumbsup"))

	assert.Equal(t, []event.Name{event.MessageCreated, event.ReactionAdded, event.ReactionRemoved}, e.disp.names())
}

func TestExtractMentions(t *testing.T) {
	assert.Equal(t, []string{"bob", "team.lead"}, ExtractMentions("@bob ping @team.lead."))
	assert.Nil(t, ExtractMentions("mail me at a@b.com"))
	assert.Nil(t, ExtractMentions("no mentions"))
}
