// Package post 消息的创建、编辑、删除、置顶与表情回应
// 每条消息在事务中分配频道内递增的 seq，提交后再广播并更新未读
package post

import (
	"context"
	"regexp"
	"strings"
	"time"

	"team_chat_server/internal/dao/database/repository"
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

var tracer = otel.Tracer("team_chat_server/service/post")

const (
	maxMessageLength = 16383
	maxFiles         = 10

	// SystemJoinLeave 系统消息默认类型
	SystemJoinLeave = "system_join_leave"
)

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9][a-zA-Z0-9._-]*)`)

// Dispatcher 消息相关事件出口
type Dispatcher interface {
	PostCreated(ctx context.Context, post event.Post)
	ThreadReplyCreated(ctx context.Context, reply event.Post, root event.PostUpdate)
	PostUpdated(ctx context.Context, upd event.PostUpdate)
	PostDeleted(ctx context.Context, channelID, postID uuid.UUID)
	ReactionAdded(ctx context.Context, r event.Reaction)
	ReactionRemoved(ctx context.Context, r event.Reaction)
}

// UnreadTracker 消息提交、删除后的未读维护
type UnreadTracker interface {
	OnPostCreated(ctx context.Context, ch *model.Channel, authorID uuid.UUID, seq int64) error
	OnPostDeleted(ctx context.Context, ch *model.Channel, post *model.Post) error
}

// DirectMembership 私聊有新消息时恢复缺失的参与者
type DirectMembership interface {
	EnsureDirectMembership(ctx context.Context, ch *model.Channel) error
}

// CreateInput 发消息参数
type CreateInput struct {
	Message     string
	RootPostID  *uuid.UUID
	Props       map[string]any
	FileIDs     []uuid.UUID
	ClientMsgID string
}

type postService struct {
	repos      *repository.Repositories
	dispatcher Dispatcher
	unread     UnreadTracker
	direct     DirectMembership
	now        func() time.Time
}

// NewPostService 构造函数
func NewPostService(repos *repository.Repositories, dispatcher Dispatcher, unread UnreadTracker) *postService {
	return &postService{repos: repos, dispatcher: dispatcher, unread: unread, now: time.Now}
}

// SetDirectMembership 频道服务依赖本服务发系统消息，因此在构造后注入
func (s *postService) SetDirectMembership(d DirectMembership) {
	s.direct = d
}

// CreatePost 成员在频道中发消息
func (s *postService) CreatePost(ctx context.Context, authorID, channelID uuid.UUID, in CreateInput) (*event.Post, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreatePost", trace.WithAttributes(
		attribute.String("user_id", authorID.String()),
		attribute.String("channel_id", channelID.String())))
	defer span.End()

	out, err := s.createPost(ctx, authorID, channelID, in, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("seq", out.Seq))
	return out, nil
}

// CreateSystemMessage 以第一个系统管理员的身份发消息，不校验成员关系
func (s *postService) CreateSystemMessage(ctx context.Context, channelID uuid.UUID, message string, props map[string]any) (*event.Post, error) {
	sys, err := s.repos.User.FindFirstSystemAdmin(ctx)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{"type": SystemJoinLeave}
	for k, v := range props {
		merged[k] = v
	}
	return s.createPost(ctx, sys.ID, channelID, CreateInput{Message: message, Props: merged}, false)
}

func (s *postService) createPost(ctx context.Context, authorID, channelID uuid.UUID, in CreateInput, requireMember bool) (*event.Post, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" && len(in.FileIDs) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "message or files required")
	}
	if len([]rune(message)) > maxMessageLength {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "message longer than %d characters", maxMessageLength)
	}
	if len(in.FileIDs) > maxFiles {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "at most %d files", maxFiles)
	}

	ch, err := s.repos.Channel.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.IsArchived {
		return nil, errorx.New(errorx.CodeForbidden, "channel is archived")
	}
	if requireMember {
		ok, err := s.repos.ChannelMember.IsMember(ctx, channelID, authorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errorx.ErrNotMember
		}
	}
	author, err := s.repos.User.FindByID(ctx, authorID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "user does not exist")
		}
		return nil, err
	}

	rootID, err := s.resolveRoot(ctx, channelID, in.RootPostID)
	if err != nil {
		return nil, err
	}
	files, err := s.resolveFiles(ctx, in.FileIDs)
	if err != nil {
		return nil, err
	}

	props := make(map[string]any, len(in.Props)+1)
	for k, v := range in.Props {
		props[k] = v
	}
	if mentions := ExtractMentions(message); len(mentions) > 0 {
		props["mentions"] = mentions
	}

	now := s.now()
	p := &model.Post{
		ChannelID:  channelID,
		UserID:     authorID,
		RootPostID: rootID,
		Message:    message,
		Props:      props,
		FileIDs:    in.FileIDs,
		CreatedAt:  now,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		seq, err := tx.Channel.NextSeq(ctx, channelID)
		if err != nil {
			return err
		}
		p.Seq = seq
		if err := tx.Post.Create(ctx, p); err != nil {
			return err
		}
		if rootID != nil {
			return tx.Post.IncrementReplyCount(ctx, *rootID, now)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("create post failed",
			zap.String("channel_id", channelID.String()),
			zap.String("user_id", authorID.String()),
			zap.Error(err))
		return nil, err
	}
	ch.LastPostSeq = p.Seq

	payload := event.NewPost(p, author, files)
	payload.ClientMsgID = in.ClientMsgID
	if rootID != nil {
		s.dispatcher.ThreadReplyCreated(ctx, payload, event.PostUpdate{
			ID:            *rootID,
			ChannelID:     channelID,
			ReplyCountInc: 1,
			LastReplyAt:   &now,
		})
	} else {
		s.dispatcher.PostCreated(ctx, payload)
	}

	if ch.Type == model.ChannelDirect && s.direct != nil {
		if err := s.direct.EnsureDirectMembership(ctx, ch); err != nil {
			zap.L().Warn("restore direct channel membership failed",
				zap.String("channel_id", channelID.String()), zap.Error(err))
		}
	}
	// 消息已提交，未读更新失败只记录，不让客户端重发
	if err := s.unread.OnPostCreated(ctx, ch, authorID, p.Seq); err != nil {
		zap.L().Error("update unread counts failed",
			zap.String("channel_id", channelID.String()),
			zap.Int64("seq", p.Seq),
			zap.Error(err))
	}
	return &payload, nil
}

// resolveRoot 回复的回复挂到同一个根消息下
func (s *postService) resolveRoot(ctx context.Context, channelID uuid.UUID, rootID *uuid.UUID) (*uuid.UUID, error) {
	if rootID == nil || *rootID == uuid.Nil {
		return nil, nil
	}
	root, err := s.repos.Post.FindByID(ctx, *rootID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeInvalidParam, "root post not found")
		}
		return nil, err
	}
	if root.ChannelID != channelID || root.IsDeleted() {
		return nil, errorx.New(errorx.CodeInvalidParam, "root post not found")
	}
	if root.RootPostID != nil {
		id := *root.RootPostID
		return &id, nil
	}
	id := root.ID
	return &id, nil
}

func (s *postService) resolveFiles(ctx context.Context, ids []uuid.UUID) ([]model.FileInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	files, err := s.repos.File.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(files) != len(ids) {
		return nil, errorx.New(errorx.CodeInvalidParam, "unknown file id")
	}
	return files, nil
}

// ExtractMentions 提取 @username，去重并保持出现顺序
func ExtractMentions(message string) []string {
	matches := mentionPattern.FindAllStringSubmatch(message, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		name := strings.ToLower(strings.TrimRight(m[1], "._-"))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
