package post

import (
	"context"
	"strings"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loadLive 已删除的消息视为不存在
func (s *postService) loadLive(ctx context.Context, postID uuid.UUID) (*model.Post, error) {
	p, err := s.repos.Post.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, errorx.ErrNotFound
	}
	return p, nil
}

// authorize 作者本人或系统管理员
func (s *postService) authorize(ctx context.Context, actorID uuid.UUID, p *model.Post) error {
	if p.UserID == actorID {
		return nil
	}
	actor, err := s.repos.User.FindByID(ctx, actorID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrForbidden
		}
		return err
	}
	if !actor.IsSystemAdmin() {
		return errorx.ErrForbidden
	}
	return nil
}

func (s *postService) requireMember(ctx context.Context, channelID, userID uuid.UUID) error {
	ok, err := s.repos.ChannelMember.IsMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.ErrNotMember
	}
	return nil
}

// EditPost 修改正文
func (s *postService) EditPost(ctx context.Context, actorID, postID uuid.UUID, message string) (*event.PostUpdate, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "message required")
	}
	if len([]rune(message)) > maxMessageLength {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "message longer than %d characters", maxMessageLength)
	}
	p, err := s.loadLive(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, p); err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]any{"message": message, "edited_at": now}
	mentions := ExtractMentions(message)
	props := map[string]any(p.Props)
	if props == nil {
		props = map[string]any{}
	}
	if len(mentions) > 0 {
		props["mentions"] = mentions
	} else {
		delete(props, "mentions")
	}
	p.Props = props
	updates["props"] = p.Props
	if err := s.repos.Post.Update(ctx, postID, updates); err != nil {
		return nil, err
	}

	upd := event.PostUpdate{ID: postID, ChannelID: p.ChannelID, Message: &message, EditedAt: &now}
	s.dispatcher.PostUpdated(ctx, upd)
	return &upd, nil
}

// SetPinned 频道成员均可置顶
func (s *postService) SetPinned(ctx context.Context, actorID, postID uuid.UUID, pinned bool) (*event.PostUpdate, error) {
	p, err := s.loadLive(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, p.ChannelID, actorID); err != nil {
		return nil, err
	}
	if p.IsPinned != pinned {
		if err := s.repos.Post.Update(ctx, postID, map[string]any{"is_pinned": pinned}); err != nil {
			return nil, err
		}
	}
	upd := event.PostUpdate{ID: postID, ChannelID: p.ChannelID, IsPinned: &pinned}
	s.dispatcher.PostUpdated(ctx, upd)
	return &upd, nil
}

// DeletePost 软删除：写入 deleted_at，seq 不回收
func (s *postService) DeletePost(ctx context.Context, actorID, postID uuid.UUID) error {
	p, err := s.loadLive(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, p); err != nil {
		return err
	}
	now := s.now()
	if err := s.repos.Post.Update(ctx, postID, map[string]any{"deleted_at": now}); err != nil {
		return err
	}
	p.DeletedAt = &now
	s.dispatcher.PostDeleted(ctx, p.ChannelID, postID)

	ch, err := s.repos.Channel.FindByID(ctx, p.ChannelID)
	if err != nil {
		zap.L().Error("load channel after delete failed", zap.String("post_id", postID.String()), zap.Error(err))
		return nil
	}
	if err := s.unread.OnPostDeleted(ctx, ch, p); err != nil {
		zap.L().Error("update unread counts after delete failed",
			zap.String("post_id", postID.String()), zap.Error(err))
	}
	return nil
}

func normalizeEmoji(name string) (string, error) {
	name = strings.Trim(strings.TrimSpace(name), ":")
	if name == "" || len(name) > 64 {
		return "", errorx.New(errorx.CodeInvalidParam, "invalid emoji name")
	}
	return name, nil
}

// AddReaction 重复添加不产生事件
func (s *postService) AddReaction(ctx context.Context, actorID, postID uuid.UUID, emoji string) (*event.Reaction, error) {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return nil, err
	}
	p, err := s.loadLive(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, p.ChannelID, actorID); err != nil {
		return nil, err
	}
	r := &model.Reaction{UserID: actorID, PostID: postID, EmojiName: emoji, ChannelID: p.ChannelID, CreatedAt: s.now()}
	inserted, err := s.repos.Reaction.Add(ctx, r)
	if err != nil {
		return nil, err
	}
	payload := event.NewReaction(r)
	if inserted {
		s.dispatcher.ReactionAdded(ctx, payload)
	}
	return &payload, nil
}

// RemoveReaction 不存在的回应直接返回
func (s *postService) RemoveReaction(ctx context.Context, actorID, postID uuid.UUID, emoji string) error {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return err
	}
	p, err := s.loadLive(ctx, postID)
	if err != nil {
		return err
	}
	removed, err := s.repos.Reaction.Remove(ctx, actorID, postID, emoji)
	if err != nil {
		return err
	}
	if removed {
		s.dispatcher.ReactionRemoved(ctx, event.Reaction{
			UserID:    actorID,
			PostID:    postID,
			ChannelID: p.ChannelID,
			EmojiName: emoji,
			CreatedAt: s.now(),
		})
	}
	return nil
}
