package channel

import (
	"context"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// canManage 频道管理员或系统管理员
func (s *channelService) canManage(ctx context.Context, ch *model.Channel, actorID uuid.UUID) (bool, error) {
	m, err := s.repos.ChannelMember.Find(ctx, ch.ID, actorID)
	if err == nil && m.Role == model.ChannelRoleAdmin {
		return true, nil
	}
	if err != nil && !errorx.IsNotFound(err) {
		return false, err
	}
	actor, err := s.repos.User.FindByID(ctx, actorID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return actor.IsSystemAdmin(), nil
}

func (s *channelService) loadActive(ctx context.Context, channelID uuid.UUID) (*model.Channel, error) {
	ch, err := s.repos.Channel.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.IsArchived {
		return nil, errorx.New(errorx.CodeForbidden, "channel is archived")
	}
	return ch, nil
}

// UpdateChannel 频道成员可修改展示信息
func (s *channelService) UpdateChannel(ctx context.Context, actorID, channelID uuid.UUID, in UpdateInput) (*event.Channel, error) {
	ch, err := s.loadActive(ctx, channelID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.ChannelMember.IsMember(ctx, channelID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.ErrNotMember
	}

	updates := map[string]any{}
	if in.DisplayName != nil {
		ch.DisplayName = *in.DisplayName
		updates["display_name"] = ch.DisplayName
	}
	if in.Purpose != nil {
		ch.Purpose = *in.Purpose
		updates["purpose"] = ch.Purpose
	}
	if in.Header != nil {
		ch.Header = *in.Header
		updates["header"] = ch.Header
	}
	if len(updates) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "nothing to update")
	}
	if err := s.repos.Channel.Update(ctx, channelID, updates); err != nil {
		return nil, err
	}
	payload := event.NewChannel(ch)
	s.dispatcher.ChannelUpdated(ctx, payload)
	return &payload, nil
}

// ArchiveChannel 归档后不能再发消息，对客户端表现为 channel_deleted
func (s *channelService) ArchiveChannel(ctx context.Context, actorID, channelID uuid.UUID) error {
	ch, err := s.loadActive(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.CreatorID != actorID {
		ok, err := s.canManage(ctx, ch, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return errorx.ErrForbidden
		}
	}
	if err := s.repos.Channel.Update(ctx, channelID, map[string]any{"is_archived": true}); err != nil {
		return err
	}
	ch.IsArchived = true
	s.dispatcher.ChannelDeleted(ctx, event.NewChannel(ch))
	return nil
}

// AddMember 公开频道可以自己加入，其余情况需要操作者已是成员
func (s *channelService) AddMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error {
	ch, err := s.loadActive(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.Type == model.ChannelDirect {
		return errorx.New(errorx.CodeInvalidParam, "cannot add members to a direct channel")
	}
	selfJoin := actorID == userID && ch.Type == model.ChannelPublic
	if !selfJoin {
		ok, err := s.repos.ChannelMember.IsMember(ctx, channelID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return errorx.ErrNotMember
		}
	}
	target, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeUserNotExist, "user does not exist")
		}
		return err
	}

	inserted, err := s.repos.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: channelID, UserID: userID})
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	s.dispatcher.MemberAdded(ctx, event.Member{
		ChannelID: channelID,
		UserID:    userID,
		Role:      model.ChannelRoleMember,
		ActorID:   actorID,
	})
	s.subs.SubscribeUserChannel(userID, channelID)
	s.systemMessage(ctx, channelID, "@"+target.Username+" joined the channel", userID)
	return nil
}

// RemoveMember 本人离开，或由管理员移除
func (s *channelService) RemoveMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error {
	ch, err := s.repos.Channel.FindByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.Type == model.ChannelDirect {
		return errorx.New(errorx.CodeInvalidParam, "cannot leave a direct channel")
	}
	if actorID != userID {
		ok, err := s.canManage(ctx, ch, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return errorx.ErrForbidden
		}
	}
	target, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	removed, err := s.repos.ChannelMember.Remove(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	s.dispatcher.MemberRemoved(ctx, event.Member{ChannelID: channelID, UserID: userID, ActorID: actorID})
	s.subs.UnsubscribeUserChannel(userID, channelID)
	s.unread.ForgetChannel(ctx, userID, ch)
	if !ch.IsArchived {
		s.systemMessage(ctx, channelID, "@"+target.Username+" left the channel", userID)
	}
	return nil
}

func (s *channelService) systemMessage(ctx context.Context, channelID uuid.UUID, text string, userID uuid.UUID) {
	if s.poster == nil {
		return
	}
	_, err := s.poster.CreateSystemMessage(ctx, channelID, text, map[string]any{"user_id": userID.String()})
	if err != nil {
		zap.L().Warn("post system message failed",
			zap.String("channel_id", channelID.String()),
			zap.Error(err))
	}
}
