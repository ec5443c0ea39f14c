package unread

import (
	"context"
	"sort"

	"team_chat_server/internal/dao/database/repository"
	cache "team_chat_server/internal/dao/redis"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChannelUnread 单个频道的未读数
type ChannelUnread struct {
	ChannelID   uuid.UUID `json:"channel_id"`
	TeamID      uuid.UUID `json:"team_id"`
	UnreadCount int64     `json:"unread_count"`
}

// TeamUnread 团队合计
type TeamUnread struct {
	TeamID      uuid.UUID `json:"team_id"`
	UnreadCount int64     `json:"unread_count"`
}

// Overview 只包含未读数大于零的频道与团队
type Overview struct {
	Channels []ChannelUnread `json:"channels"`
	Teams    []TeamUnread    `json:"teams"`
}

// GetUnreadOverview 命中缓存直接使用，未命中从数据库重算并回填
// 冷缓存与热缓存得到的结果一致
func (t *Tracker) GetUnreadOverview(ctx context.Context, userID uuid.UUID) (ov *Overview, err error) {
	ctx, span := startSpan(ctx, "UnreadTracker.GetUnreadOverview", userID, uuid.Nil)
	defer func() { endSpan(span, err) }()

	memberships, err := t.repos.ChannelMember.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(memberships))
	for i, m := range memberships {
		keys[i] = cache.UnreadKey(userID, m.ChannelID)
	}
	cached := map[string]int64{}
	if len(keys) > 0 {
		if cached, err = t.cache.MGetInt(ctx, keys...); err != nil {
			t.heal(ctx, healCacheError, err)
			cached = map[string]int64{}
		}
	}

	ov = &Overview{Channels: []ChannelUnread{}, Teams: []TeamUnread{}}
	teamTotals := make(map[uuid.UUID]int64)
	misses := 0
	for i, m := range memberships {
		count, hit := cached[keys[i]]
		if hit && count < 0 {
			zap.L().Warn("negative unread count in cache",
				zap.String("user_id", userID.String()),
				zap.String("channel_id", m.ChannelID.String()),
				zap.Int64("value", count))
			t.metrics.RecordSelfHeal(healNegative)
			hit = false
		}
		t.metrics.RecordUnreadLookup(hit)
		if !hit {
			misses++
			count, err = t.durableCount(ctx, userID, m.ChannelID)
			if err != nil {
				return nil, err
			}
			t.writeCount(ctx, keys[i], count)
		}
		if _, ok := teamTotals[m.TeamID]; !ok {
			teamTotals[m.TeamID] = 0
		}
		if count > 0 {
			ov.Channels = append(ov.Channels, ChannelUnread{ChannelID: m.ChannelID, TeamID: m.TeamID, UnreadCount: count})
			teamTotals[m.TeamID] += count
		}
	}

	for teamID, total := range teamTotals {
		t.writeCount(ctx, cache.TeamUnreadKey(userID, teamID), total)
		if total > 0 {
			ov.Teams = append(ov.Teams, TeamUnread{TeamID: teamID, UnreadCount: total})
		}
	}
	sort.Slice(ov.Teams, func(i, j int) bool {
		return ov.Teams[i].TeamID.String() < ov.Teams[j].TeamID.String()
	})
	span.SetAttributes(
		attribute.Int("channels", len(memberships)),
		attribute.Int("cache_misses", misses))
	return ov, nil
}

// MarkAllAsRead 所有频道的游标移动到最新消息并清空缓存
func (t *Tracker) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "UnreadTracker.MarkAllAsRead", userID, uuid.Nil)
	defer func() { endSpan(span, err) }()

	memberships, err := t.repos.ChannelMember.ListMemberships(ctx, userID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(memberships))
	for _, m := range memberships {
		keys = append(keys, cache.UnreadKey(userID, m.ChannelID))
	}
	before := map[string]int64{}
	if len(keys) > 0 {
		if before, err = t.cache.MGetInt(ctx, keys...); err != nil {
			zap.L().Warn("read unread counts before mark-all failed", zap.Error(err))
			before = map[string]int64{}
		}
	}

	now := t.now()
	err = t.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		for _, m := range memberships {
			last, err := tx.Post.MaxSeq(ctx, m.ChannelID)
			if err != nil {
				return err
			}
			if err := tx.ChannelRead.Upsert(ctx, userID, m.ChannelID, last, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, pattern := range cache.UserUnreadPatterns(userID) {
		if err := t.cache.DeleteByPattern(ctx, pattern); err != nil {
			t.heal(ctx, healCacheError, err, keys...)
		}
	}
	for i, m := range memberships {
		if before[keys[i]] > 0 {
			t.notifier.UnreadCountsUpdated(ctx, userID, event.UnreadCounts{ChannelID: m.ChannelID, TeamID: m.TeamID})
		}
	}
	return nil
}

// OnPostDeleted 只有游标落后于被删消息的成员计数会变化
func (t *Tracker) OnPostDeleted(ctx context.Context, ch *model.Channel, post *model.Post) (err error) {
	ctx, span := startSpan(ctx, "UnreadTracker.OnPostDeleted", post.UserID, ch.ID)
	span.SetAttributes(attribute.Int64("seq", post.Seq))
	defer func() { endSpan(span, err) }()

	members, err := t.repos.ChannelMember.ListUserIDs(ctx, ch.ID)
	if err != nil {
		return err
	}
	for _, u := range members {
		last, err := t.repos.ChannelRead.LastReadSeq(ctx, u, ch.ID)
		if err != nil {
			return err
		}
		if last >= post.Seq {
			continue
		}
		count, err := t.repos.Post.CountAfterSeq(ctx, ch.ID, last)
		if err != nil {
			return err
		}
		if t.reconcile(ctx, u, ch, count) {
			t.notifier.UnreadCountsUpdated(ctx, u, event.UnreadCounts{ChannelID: ch.ID, TeamID: ch.TeamID, UnreadCount: count})
		}
	}
	return nil
}

// ForgetChannel 用户离开频道后丢弃其计数，团队合计交给下次概览重建
func (t *Tracker) ForgetChannel(ctx context.Context, userID uuid.UUID, ch *model.Channel) {
	t.deleteKeys(ctx, cache.UnreadKey(userID, ch.ID), cache.TeamUnreadKey(userID, ch.TeamID))
}
