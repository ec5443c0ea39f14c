// Package repository 定义数据访问层接口、gorm 实现与聚合结构
package repository

import (
	"context"
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	// FindFirstSystemAdmin 系统消息的发送者
	FindFirstSystemAdmin(ctx context.Context) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdatePresence(ctx context.Context, id uuid.UUID, presence model.Presence, at time.Time) error
	// ListNotOffline 持久化状态不是 offline 的用户，供在线状态对账
	ListNotOffline(ctx context.Context) ([]model.User, error)
}

// TeamMemberRepository 团队成员关系
type TeamMemberRepository interface {
	Create(ctx context.Context, member *model.TeamMember) error
	IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	ListTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ChannelRepository 频道数据访问接口
type ChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	FindByTeamAndName(ctx context.Context, teamID uuid.UUID, name string) (*model.Channel, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// NextSeq 自增并返回频道的下一个消息序号，必须在事务中调用
	NextSeq(ctx context.Context, id uuid.UUID) (int64, error)
}

// ChannelMemberRepository 频道成员关系
type ChannelMemberRepository interface {
	// Add 已存在时不报错，返回是否新插入
	Add(ctx context.Context, member *model.ChannelMember) (bool, error)
	// Remove 返回是否确实删除了一行
	Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	Find(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error)
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	ListUserIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error)
	// ListMemberships 用户加入的全部频道及其团队
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
	TouchLastViewed(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error
}

// PostRepository 消息数据访问接口
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	IncrementReplyCount(ctx context.Context, rootID uuid.UUID, at time.Time) error
	// CountAfterSeq 频道内 seq > afterSeq 且未删除的消息数
	CountAfterSeq(ctx context.Context, channelID uuid.UUID, afterSeq int64) (int64, error)
	// MaxSeq 频道内最大 seq，无消息时为 0
	MaxSeq(ctx context.Context, channelID uuid.UUID) (int64, error)
}

// ReactionRepository 表情回应
type ReactionRepository interface {
	Add(ctx context.Context, reaction *model.Reaction) (bool, error)
	Remove(ctx context.Context, userID, postID uuid.UUID, emoji string) (bool, error)
	ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Reaction, error)
}

// FileRepository 附件元数据
type FileRepository interface {
	Create(ctx context.Context, file *model.FileInfo) error
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.FileInfo, error)
}

// ChannelReadRepository 已读游标
type ChannelReadRepository interface {
	// Upsert 直接覆盖游标
	Upsert(ctx context.Context, userID, channelID uuid.UUID, seq int64, at time.Time) error
	// LastReadSeq 没有游标时返回 0
	LastReadSeq(ctx context.Context, userID, channelID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChannelRead, error)
}

// ServerConfigRepository 在线配置
type ServerConfigRepository interface {
	Find(ctx context.Context, category string) (*model.ServerConfig, error)
	Save(ctx context.Context, cfg *model.ServerConfig) error
}

// Repositories 聚合所有 Repository，Service 层通过它访问数据层
type Repositories struct {
	db            *gorm.DB
	User          UserRepository
	TeamMember    TeamMemberRepository
	Channel       ChannelRepository
	ChannelMember ChannelMemberRepository
	Post          PostRepository
	Reaction      ReactionRepository
	File          FileRepository
	ChannelRead   ChannelReadRepository
	ServerConfig  ServerConfigRepository
}

// NewRepositories 用同一个 gorm 实例构造所有 Repository
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		User:          NewUserRepository(db),
		TeamMember:    NewTeamMemberRepository(db),
		Channel:       NewChannelRepository(db),
		ChannelMember: NewChannelMemberRepository(db),
		Post:          NewPostRepository(db),
		Reaction:      NewReactionRepository(db),
		File:          NewFileRepository(db),
		ChannelRead:   NewChannelReadRepository(db),
		ServerConfig:  NewServerConfigRepository(db),
	}
}

// Transaction 在事务中执行 fn，fn 收到的是绑定事务的 Repositories
// fn 返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB 底层 gorm 实例，供健康检查使用
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
