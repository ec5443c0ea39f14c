// Package unread 维护每个用户在每个频道的未读计数
// 数据库中的 channel_reads 与 posts 是事实来源，缓存里的计数随时可以重建
package unread

import (
	"context"
	"time"

	"team_chat_server/internal/dao/database/repository"
	cache "team_chat_server/internal/dao/redis"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("team_chat_server/service/unread")

// 自愈原因，用作指标标签
const (
	healCacheError      = "cache_error"
	healColdIncrement   = "cold_increment"
	healNegative        = "negative"
	healMissingPrevious = "missing_previous"
)

// Notifier 未读数变化的推送出口
type Notifier interface {
	UnreadCountsUpdated(ctx context.Context, userID uuid.UUID, counts event.UnreadCounts)
}

// Tracker 未读计数
type Tracker struct {
	repos    *repository.Repositories
	cache    cache.CounterStore
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewTracker m 可以为 nil
func NewTracker(repos *repository.Repositories, store cache.CounterStore, notifier Notifier, m *metrics.Metrics) *Tracker {
	return &Tracker{
		repos:    repos,
		cache:    store,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

func startSpan(ctx context.Context, name string, userID, channelID uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("user_id", userID.String())}
	if channelID != uuid.Nil {
		attrs = append(attrs, attribute.String("channel_id", channelID.String()))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// OnPostCreated 消息提交后调用
// 作者的游标直接推进到该消息，其余成员的计数加一并各自收到推送
func (t *Tracker) OnPostCreated(ctx context.Context, ch *model.Channel, authorID uuid.UUID, seq int64) (err error) {
	ctx, span := startSpan(ctx, "UnreadTracker.OnPostCreated", authorID, ch.ID)
	span.SetAttributes(attribute.Int64("seq", seq))
	defer func() { endSpan(span, err) }()

	if _, err := t.cache.SetMax(ctx, cache.LastSeqKey(ch.ID), seq); err != nil {
		t.heal(ctx, healCacheError, err, cache.LastSeqKey(ch.ID))
	}

	if err := t.repos.ChannelRead.Upsert(ctx, authorID, ch.ID, seq, t.now()); err != nil {
		return err
	}
	members, err := t.repos.ChannelMember.ListUserIDs(ctx, ch.ID)
	if err != nil {
		return err
	}

	for _, u := range members {
		if u == authorID {
			t.clearAuthor(ctx, u, ch)
			continue
		}
		count := t.increment(ctx, u, ch)
		t.notifier.UnreadCountsUpdated(ctx, u, event.UnreadCounts{
			ChannelID:   ch.ID,
			TeamID:      ch.TeamID,
			UnreadCount: count,
		})
	}
	return nil
}

// increment 缓存自增；结果为 1 说明键原本不存在，需要对照数据库校正
func (t *Tracker) increment(ctx context.Context, userID uuid.UUID, ch *model.Channel) int64 {
	key := cache.UnreadKey(userID, ch.ID)
	n, err := t.cache.Incr(ctx, key)
	if err != nil {
		t.heal(ctx, healCacheError, err, key, cache.TeamUnreadKey(userID, ch.TeamID))
		return t.durableCountOrZero(ctx, userID, ch.ID)
	}
	if n == 1 {
		actual, err := t.durableCount(ctx, userID, ch.ID)
		if err != nil {
			zap.L().Error("verify cold unread count failed",
				zap.String("user_id", userID.String()),
				zap.String("channel_id", ch.ID.String()),
				zap.Error(err))
			t.deleteKeys(ctx, key, cache.TeamUnreadKey(userID, ch.TeamID))
			return n
		}
		if actual != n {
			t.metrics.RecordSelfHeal(healColdIncrement)
			t.writeCount(ctx, key, actual)
			n = actual
		}
	}
	t.bumpTeam(ctx, userID, ch.TeamID)
	return n
}

// bumpTeam 团队合计加一；不存在的团队键不从单次自增播种，留给概览重建
func (t *Tracker) bumpTeam(ctx context.Context, userID, teamID uuid.UUID) {
	key := cache.TeamUnreadKey(userID, teamID)
	n, err := t.cache.Incr(ctx, key)
	if err != nil {
		t.heal(ctx, healCacheError, err, key)
		return
	}
	if n == 1 {
		t.deleteKeys(ctx, key)
	}
}

// clearAuthor 作者发言即视为已读，清掉此前残留的计数
func (t *Tracker) clearAuthor(ctx context.Context, userID uuid.UUID, ch *model.Channel) {
	key := cache.UnreadKey(userID, ch.ID)
	prev, found, err := t.cache.GetInt(ctx, key)
	if err != nil {
		t.heal(ctx, healCacheError, err, key, cache.TeamUnreadKey(userID, ch.TeamID))
		return
	}
	if !found || prev == 0 {
		return
	}
	t.deleteKeys(ctx, key)
	t.adjustTeam(ctx, userID, ch.TeamID, -prev)
	t.notifier.UnreadCountsUpdated(ctx, userID, event.UnreadCounts{ChannelID: ch.ID, TeamID: ch.TeamID})
}

// MarkChannelAsRead 把游标移动到 targetSeq（为空时移动到频道最新消息）
// 计数以数据库重算结果为准，绝对写入，重复调用结果相同
func (t *Tracker) MarkChannelAsRead(ctx context.Context, userID, channelID uuid.UUID, targetSeq *int64) (counts *event.UnreadCounts, err error) {
	ctx, span := startSpan(ctx, "UnreadTracker.MarkChannelAsRead", userID, channelID)
	defer func() { endSpan(span, err) }()

	if targetSeq != nil && *targetSeq < 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "target_seq must not be negative")
	}
	ch, err := t.repos.Channel.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	isMember, err := t.repos.ChannelMember.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, errorx.ErrNotMember
	}

	last, err := t.lastSeq(ctx, channelID)
	if err != nil {
		return nil, err
	}
	cursor := last
	if targetSeq != nil && *targetSeq < last {
		cursor = *targetSeq
	}
	span.SetAttributes(attribute.Int64("cursor", cursor))

	now := t.now()
	var dbCount int64
	err = t.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.ChannelRead.Upsert(ctx, userID, channelID, cursor, now); err != nil {
			return err
		}
		if err := tx.ChannelMember.TouchLastViewed(ctx, channelID, userID, now); err != nil {
			return err
		}
		dbCount, err = tx.Post.CountAfterSeq(ctx, channelID, cursor)
		return err
	})
	if err != nil {
		return nil, err
	}

	changed := t.reconcile(ctx, userID, ch, dbCount)
	counts = &event.UnreadCounts{ChannelID: channelID, TeamID: ch.TeamID, UnreadCount: dbCount}
	if changed || targetSeq != nil {
		t.notifier.UnreadCountsUpdated(ctx, userID, *counts)
	}
	return counts, nil
}

// reconcile 把数据库计数写回缓存并按差值调整团队合计，返回计数是否变化
// 键不存在按零处理；此时团队键无法按差值调整，直接删除
func (t *Tracker) reconcile(ctx context.Context, userID uuid.UUID, ch *model.Channel, dbCount int64) bool {
	key := cache.UnreadKey(userID, ch.ID)
	teamKey := cache.TeamUnreadKey(userID, ch.TeamID)

	prev, found, err := t.cache.GetInt(ctx, key)
	if err != nil {
		t.heal(ctx, healCacheError, err, key, teamKey)
		return true
	}
	t.writeCount(ctx, key, dbCount)

	if !found {
		if dbCount > 0 {
			t.metrics.RecordSelfHeal(healMissingPrevious)
		}
		t.deleteKeys(ctx, teamKey)
		return dbCount != 0
	}
	if prev < 0 {
		t.metrics.RecordSelfHeal(healNegative)
		t.deleteKeys(ctx, teamKey)
		return true
	}
	if delta := dbCount - prev; delta != 0 {
		t.adjustTeam(ctx, userID, ch.TeamID, delta)
		return true
	}
	return false
}

// adjustTeam 团队键不存在时不调整，避免从差值播种出负数
func (t *Tracker) adjustTeam(ctx context.Context, userID, teamID uuid.UUID, delta int64) {
	key := cache.TeamUnreadKey(userID, teamID)
	if _, found, err := t.cache.GetInt(ctx, key); err != nil || !found {
		if err != nil {
			t.heal(ctx, healCacheError, err, key)
		}
		return
	}
	n, err := t.cache.IncrBy(ctx, key, delta)
	if err != nil {
		t.heal(ctx, healCacheError, err, key)
		return
	}
	switch {
	case n < 0:
		zap.L().Warn("negative team unread count, dropping cache entry",
			zap.String("user_id", userID.String()),
			zap.String("team_id", teamID.String()),
			zap.Int64("value", n))
		t.metrics.RecordSelfHeal(healNegative)
		t.deleteKeys(ctx, key)
	case n == 0:
		t.deleteKeys(ctx, key)
	}
}

// writeCount 零值以键不存在表示
func (t *Tracker) writeCount(ctx context.Context, key string, n int64) {
	var err error
	if n <= 0 {
		err = t.cache.Delete(ctx, key)
	} else {
		err = t.cache.SetInt(ctx, key, n)
	}
	if err != nil {
		t.heal(ctx, healCacheError, err, key)
	}
}

// lastSeq 优先读缓存，未命中时取数据库最大 seq 并回填
func (t *Tracker) lastSeq(ctx context.Context, channelID uuid.UUID) (int64, error) {
	key := cache.LastSeqKey(channelID)
	v, found, err := t.cache.GetInt(ctx, key)
	if err == nil && found {
		return v, nil
	}
	if err != nil {
		t.heal(ctx, healCacheError, err, key)
	}
	v, err = t.repos.Post.MaxSeq(ctx, channelID)
	if err != nil {
		return 0, err
	}
	if _, err := t.cache.SetMax(ctx, key, v); err != nil {
		t.heal(ctx, healCacheError, err, key)
	}
	return v, nil
}

// durableCount 数据库中的真实未读数
func (t *Tracker) durableCount(ctx context.Context, userID, channelID uuid.UUID) (int64, error) {
	last, err := t.repos.ChannelRead.LastReadSeq(ctx, userID, channelID)
	if err != nil {
		return 0, err
	}
	return t.repos.Post.CountAfterSeq(ctx, channelID, last)
}

func (t *Tracker) durableCountOrZero(ctx context.Context, userID, channelID uuid.UUID) int64 {
	n, err := t.durableCount(ctx, userID, channelID)
	if err != nil {
		zap.L().Error("recompute unread count failed",
			zap.String("user_id", userID.String()),
			zap.String("channel_id", channelID.String()),
			zap.Error(err))
		return 0
	}
	return n
}

// heal 缓存出错时删除相关键，下次读取从数据库重建
func (t *Tracker) heal(ctx context.Context, reason string, cause error, keys ...string) {
	zap.L().Warn("unread cache self-heal",
		zap.String("reason", reason),
		zap.Strings("keys", keys),
		zap.Error(cause))
	t.metrics.RecordSelfHeal(reason)
	t.deleteKeys(ctx, keys...)
}

func (t *Tracker) deleteKeys(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := t.cache.Delete(ctx, keys...); err != nil {
		zap.L().Warn("delete unread cache keys failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
