// Package service 定义业务层接口
// 本文件定义 Handler 层依赖的 Service 接口
package service

import (
	"context"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/internal/service/channel"
	"team_chat_server/internal/service/post"
	"team_chat_server/internal/service/unread"
	"team_chat_server/internal/service/user"

	"github.com/google/uuid"
)

// PostService 消息业务接口
type PostService interface {
	CreatePost(ctx context.Context, authorID, channelID uuid.UUID, in post.CreateInput) (*event.Post, error)
	EditPost(ctx context.Context, actorID, postID uuid.UUID, message string) (*event.PostUpdate, error)
	SetPinned(ctx context.Context, actorID, postID uuid.UUID, pinned bool) (*event.PostUpdate, error)
	DeletePost(ctx context.Context, actorID, postID uuid.UUID) error
	AddReaction(ctx context.Context, actorID, postID uuid.UUID, emoji string) (*event.Reaction, error)
	RemoveReaction(ctx context.Context, actorID, postID uuid.UUID, emoji string) error
}

// ChannelService 频道与成员业务接口
type ChannelService interface {
	CheckAccess(ctx context.Context, userID, channelID uuid.UUID) error
	CreateChannel(ctx context.Context, actorID uuid.UUID, in channel.CreateInput) (*event.Channel, error)
	GetOrCreateDirectChannel(ctx context.Context, teamID, a, b uuid.UUID) (*event.Channel, bool, error)
	UpdateChannel(ctx context.Context, actorID, channelID uuid.UUID, in channel.UpdateInput) (*event.Channel, error)
	ArchiveChannel(ctx context.Context, actorID, channelID uuid.UUID) error
	AddMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error
}

// UserService 用户资料与在线状态
type UserService interface {
	LoadMemberships(ctx context.Context, userID uuid.UUID) (*user.Memberships, error)
	SetPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error
	PersistPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error
	GetPresence(ctx context.Context, userID uuid.UUID) model.Presence
	SyncPresence(ctx context.Context) (int, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in user.ProfileInput) (*event.User, error)
}

// UnreadService 未读计数
type UnreadService interface {
	MarkChannelAsRead(ctx context.Context, userID, channelID uuid.UUID, targetSeq *int64) (*event.UnreadCounts, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	GetUnreadOverview(ctx context.Context, userID uuid.UUID) (*unread.Overview, error)
}

// AdminService 服务端配置
type AdminService interface {
	GetConfig(ctx context.Context, category string) (map[string]any, error)
	PatchConfig(ctx context.Context, actorID uuid.UUID, category string, values map[string]any) (map[string]any, error)
	ApplyStored(ctx context.Context) error
}
