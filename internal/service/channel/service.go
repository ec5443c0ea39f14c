// Package channel 频道与成员关系
// 成员变化同时更新数据库、在线订阅和推送，未读缓存随成员离开一起清理
package channel

import (
	"context"
	"strings"

	"team_chat_server/internal/dao/database/repository"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher 频道相关事件出口
type Dispatcher interface {
	ChannelCreated(ctx context.Context, ch event.Channel, memberIDs []uuid.UUID)
	ChannelCreatedForUser(ctx context.Context, ch event.Channel, userID uuid.UUID)
	ChannelUpdated(ctx context.Context, ch event.Channel)
	ChannelDeleted(ctx context.Context, ch event.Channel)
	MemberAdded(ctx context.Context, m event.Member)
	MemberRemoved(ctx context.Context, m event.Member)
}

// SubscriptionManager 由 Hub 实现，作用于用户的全部在线连接
type SubscriptionManager interface {
	SubscribeUserChannel(userID, channelID uuid.UUID) int
	UnsubscribeUserChannel(userID, channelID uuid.UUID) int
}

// SystemPoster 成员变化的系统消息
type SystemPoster interface {
	CreateSystemMessage(ctx context.Context, channelID uuid.UUID, message string, props map[string]any) (*event.Post, error)
}

// UnreadCleaner 用户离开频道后清理计数
type UnreadCleaner interface {
	ForgetChannel(ctx context.Context, userID uuid.UUID, ch *model.Channel)
}

// CreateInput 建频道参数
type CreateInput struct {
	TeamID      uuid.UUID
	Name        string
	DisplayName string
	Purpose     string
	Header      string
	Type        model.ChannelType
	MemberIDs   []uuid.UUID
}

// UpdateInput nil 字段不修改
type UpdateInput struct {
	DisplayName *string
	Purpose     *string
	Header      *string
}

type channelService struct {
	repos      *repository.Repositories
	dispatcher Dispatcher
	subs       SubscriptionManager
	poster     SystemPoster
	unread     UnreadCleaner
}

// NewChannelService 构造函数
func NewChannelService(repos *repository.Repositories, dispatcher Dispatcher, subs SubscriptionManager, poster SystemPoster, unread UnreadCleaner) *channelService {
	return &channelService{repos: repos, dispatcher: dispatcher, subs: subs, poster: poster, unread: unread}
}

// CheckAccess 订阅前校验成员关系
func (s *channelService) CheckAccess(ctx context.Context, userID, channelID uuid.UUID) error {
	if _, err := s.repos.Channel.FindByID(ctx, channelID); err != nil {
		return err
	}
	ok, err := s.repos.ChannelMember.IsMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.ErrNotMember
	}
	return nil
}

// CreateChannel 创建者成为频道管理员，其余成员一并加入
func (s *channelService) CreateChannel(ctx context.Context, actorID uuid.UUID, in CreateInput) (*event.Channel, error) {
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	if in.Name == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "channel name required")
	}
	if !in.Type.Valid() || in.Type == model.ChannelDirect {
		return nil, errorx.New(errorx.CodeInvalidParam, "invalid channel type")
	}
	if strings.HasPrefix(in.Name, "dm_") {
		return nil, errorx.New(errorx.CodeInvalidParam, "channel name prefix dm_ is reserved")
	}
	inTeam, err := s.repos.TeamMember.IsMember(ctx, in.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if !inTeam {
		return nil, errorx.New(errorx.CodeForbidden, "not a member of this team")
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Name
	}

	ch := &model.Channel{
		TeamID:      in.TeamID,
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Purpose:     in.Purpose,
		Header:      in.Header,
		Type:        in.Type,
		CreatorID:   actorID,
	}
	members := uniqueMembers(actorID, in.MemberIDs)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Channel.Create(ctx, ch); err != nil {
			return err
		}
		for _, u := range members {
			role := model.ChannelRoleMember
			if u == actorID {
				role = model.ChannelRoleAdmin
			}
			if _, err := tx.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: ch.ID, UserID: u, Role: role}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errorx.HasCode(err, errorx.CodeConflict) {
			return nil, errorx.Wrap(err, errorx.CodeConflict, "channel name already exists")
		}
		return nil, err
	}

	for _, u := range members {
		s.subs.SubscribeUserChannel(u, ch.ID)
	}
	payload := event.NewChannel(ch)
	s.dispatcher.ChannelCreated(ctx, payload, members)
	zap.L().Info("channel created",
		zap.String("channel_id", ch.ID.String()),
		zap.String("team_id", ch.TeamID.String()),
		zap.String("type", string(ch.Type)),
		zap.Int("members", len(members)))
	return &payload, nil
}

func uniqueMembers(first uuid.UUID, rest []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{first: {}}
	out := []uuid.UUID{first}
	for _, u := range rest {
		if u == uuid.Nil {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// GetOrCreateDirectChannel 私聊频道按参与者唯一，已存在时补齐成员
func (s *channelService) GetOrCreateDirectChannel(ctx context.Context, teamID, a, b uuid.UUID) (*event.Channel, bool, error) {
	if a == b || a == uuid.Nil || b == uuid.Nil {
		return nil, false, errorx.New(errorx.CodeInvalidParam, "direct channel needs two distinct users")
	}
	name := model.DirectChannelName(a, b)
	existing, err := s.repos.Channel.FindByTeamAndName(ctx, teamID, name)
	if err == nil {
		if err := s.EnsureDirectMembership(ctx, existing); err != nil {
			return nil, false, err
		}
		payload := event.NewChannel(existing)
		return &payload, false, nil
	}
	if !errorx.IsNotFound(err) {
		return nil, false, err
	}

	ch := &model.Channel{TeamID: teamID, Name: name, DisplayName: name, Type: model.ChannelDirect, CreatorID: a}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Channel.Create(ctx, ch); err != nil {
			return err
		}
		for _, u := range []uuid.UUID{a, b} {
			if _, err := tx.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: ch.ID, UserID: u}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	for _, u := range []uuid.UUID{a, b} {
		s.subs.SubscribeUserChannel(u, ch.ID)
	}
	payload := event.NewChannel(ch)
	s.dispatcher.ChannelCreated(ctx, payload, []uuid.UUID{a, b})
	return &payload, true, nil
}

// EnsureDirectMembership 从频道名解析参与者，补回缺失的成员行并单独通知
func (s *channelService) EnsureDirectMembership(ctx context.Context, ch *model.Channel) error {
	if ch.Type != model.ChannelDirect {
		return nil
	}
	a, b, err := model.ParseDirectChannelName(ch.Name)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "malformed direct channel")
	}
	for _, u := range []uuid.UUID{a, b} {
		inserted, err := s.repos.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: ch.ID, UserID: u})
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		s.subs.SubscribeUserChannel(u, ch.ID)
		s.dispatcher.ChannelCreatedForUser(ctx, event.NewChannel(ch), u)
		zap.L().Info("direct channel member restored",
			zap.String("channel_id", ch.ID.String()),
			zap.String("user_id", u.String()))
	}
	return nil
}
