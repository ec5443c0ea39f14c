// Package dispatcher 把业务层的状态变化翻译为带路由目标的信封并交给 Hub
// 所有推送都经过这里，业务代码不直接接触 Hub
package dispatcher

import (
	"context"

	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broadcaster 由 Hub 实现
type Broadcaster interface {
	Broadcast(env event.Envelope) int
}

// Exporter 事件镜像，失败不影响在线推送
type Exporter interface {
	Export(ctx context.Context, env event.Envelope) error
}

// Dispatcher 无状态的事件分发门面
type Dispatcher struct {
	hub      Broadcaster
	exporter Exporter
	metrics  *metrics.Metrics
}

// Option 构造选项
type Option func(*Dispatcher)

// WithExporter 启用事件导出
func WithExporter(e Exporter) Option {
	return func(d *Dispatcher) { d.exporter = e }
}

// WithMetrics 记录事件计数
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New 创建 Dispatcher
func New(hub Broadcaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{hub: hub}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 投递一个信封，返回送达的连接数
func (d *Dispatcher) Dispatch(ctx context.Context, env event.Envelope) int {
	n := d.hub.Broadcast(env)
	d.metrics.RecordEvent(env.Event.String())
	if d.exporter != nil {
		if err := d.exporter.Export(ctx, env); err != nil {
			d.metrics.RecordExportError()
			zap.L().Warn("event export failed",
				zap.String("event", env.Event.String()),
				zap.Error(err))
		}
	}
	return n
}

// PostCreated 根消息，发给频道全部订阅者，不排除作者
func (d *Dispatcher) PostCreated(ctx context.Context, post event.Post) {
	d.Dispatch(ctx, event.NewInChannel(event.MessageCreated, post.ChannelID, event.ToChannel(post.ChannelID), post))
}

// ThreadReplyCreated 先推送回复，再推送根消息的回复数变化
func (d *Dispatcher) ThreadReplyCreated(ctx context.Context, reply event.Post, root event.PostUpdate) {
	d.Dispatch(ctx, event.NewInChannel(event.ThreadReplyCreated, reply.ChannelID, event.ToChannel(reply.ChannelID), reply))
	d.PostUpdated(ctx, root)
}

// PostUpdated 编辑、置顶或回复数变化
func (d *Dispatcher) PostUpdated(ctx context.Context, upd event.PostUpdate) {
	d.Dispatch(ctx, event.NewInChannel(event.MessageUpdated, upd.ChannelID, event.ToChannel(upd.ChannelID), upd))
}

func (d *Dispatcher) PostDeleted(ctx context.Context, channelID, postID uuid.UUID) {
	d.Dispatch(ctx, event.NewInChannel(event.MessageDeleted, channelID, event.ToChannel(channelID),
		event.PostDeleted{ID: postID, ChannelID: channelID}))
}

func (d *Dispatcher) ReactionAdded(ctx context.Context, r event.Reaction) {
	d.Dispatch(ctx, event.NewInChannel(event.ReactionAdded, r.ChannelID, event.ToChannel(r.ChannelID), r))
}

func (d *Dispatcher) ReactionRemoved(ctx context.Context, r event.Reaction) {
	d.Dispatch(ctx, event.NewInChannel(event.ReactionRemoved, r.ChannelID, event.ToChannel(r.ChannelID), r))
}

// Typing 唯一排除发送者的事件，不落库
func (d *Dispatcher) Typing(ctx context.Context, channelID uuid.UUID, t event.Typing, stop bool) {
	name := event.UserTyping
	if stop {
		name = event.UserTypingStop
	}
	d.Dispatch(ctx, event.NewInChannel(name, channelID, event.ToChannel(channelID).Excluding(t.UserID), t))
}

func (d *Dispatcher) UserPresence(ctx context.Context, userID uuid.UUID, status model.Presence) {
	d.Dispatch(ctx, event.New(event.UserPresence, event.ToAll(), event.Presence{UserID: userID, Status: status}))
}

// UserUpdated excludeActor 为 true 时不推给本人
func (d *Dispatcher) UserUpdated(ctx context.Context, u event.User, excludeActor bool) {
	target := event.ToAll()
	if excludeActor {
		target = target.Excluding(u.ID)
	}
	d.Dispatch(ctx, event.New(event.UserUpdated, target, u))
}

// ChannelCreated 公开频道推给整个团队，其余类型逐个推给成员
func (d *Dispatcher) ChannelCreated(ctx context.Context, ch event.Channel, memberIDs []uuid.UUID) {
	if ch.Type == model.ChannelPublic {
		d.Dispatch(ctx, event.NewInChannel(event.ChannelCreated, ch.ID, event.ToTeam(ch.TeamID), ch))
		return
	}
	for _, u := range memberIDs {
		d.Dispatch(ctx, event.NewInChannel(event.ChannelCreated, ch.ID, event.ToUser(u), ch))
	}
}

// ChannelCreatedForUser 私聊恢复成员时只通知该用户
func (d *Dispatcher) ChannelCreatedForUser(ctx context.Context, ch event.Channel, userID uuid.UUID) {
	d.Dispatch(ctx, event.NewInChannel(event.ChannelCreated, ch.ID, event.ToUser(userID), ch))
}

func (d *Dispatcher) ChannelUpdated(ctx context.Context, ch event.Channel) {
	d.Dispatch(ctx, event.NewInChannel(event.ChannelUpdated, ch.ID, event.ToChannel(ch.ID), ch))
}

func (d *Dispatcher) ChannelDeleted(ctx context.Context, ch event.Channel) {
	d.Dispatch(ctx, event.NewInChannel(event.ChannelDeleted, ch.ID, event.ToChannel(ch.ID), ch))
}

// MemberAdded 频道内其他订阅者一份，被加入者的全部连接一份
func (d *Dispatcher) MemberAdded(ctx context.Context, m event.Member) {
	d.memberEvent(ctx, event.MemberAdded, m)
}

func (d *Dispatcher) MemberRemoved(ctx context.Context, m event.Member) {
	d.memberEvent(ctx, event.MemberRemoved, m)
}

func (d *Dispatcher) memberEvent(ctx context.Context, name event.Name, m event.Member) {
	d.Dispatch(ctx, event.NewInChannel(name, m.ChannelID, event.ToChannel(m.ChannelID).Excluding(m.UserID), m))
	d.Dispatch(ctx, event.NewInChannel(name, m.ChannelID, event.ToUser(m.UserID), m))
}

func (d *Dispatcher) ConfigUpdated(ctx context.Context, category string, cfg map[string]any) {
	d.Dispatch(ctx, event.New(event.ConfigUpdated, event.ToAll(), event.Config{Category: category, Config: cfg}))
}

func (d *Dispatcher) UnreadCountsUpdated(ctx context.Context, userID uuid.UUID, counts event.UnreadCounts) {
	d.Dispatch(ctx, event.NewInChannel(event.UnreadCountsUpdated, counts.ChannelID, event.ToUser(userID), counts))
}
