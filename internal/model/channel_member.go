package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// 频道成员角色
const (
	ChannelRoleAdmin  = "channel_admin"
	ChannelRoleMember = "member"
)

// ChannelMember 频道成员关系
type ChannelMember struct {
	ChannelID    uuid.UUID         `gorm:"column:channel_id;type:char(36);primaryKey" json:"channel_id"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:char(36);primaryKey;index" json:"user_id"`
	Role         string            `gorm:"column:role;type:varchar(32);not null;default:member" json:"role"`
	NotifyProps  datatypes.JSONMap `gorm:"column:notify_props" json:"notify_props"`
	LastViewedAt *time.Time        `gorm:"column:last_viewed_at" json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (ChannelMember) TableName() string {
	return "channel_members"
}

// Membership 用户所在频道及其所属团队
type Membership struct {
	ChannelID uuid.UUID `gorm:"column:channel_id"`
	TeamID    uuid.UUID `gorm:"column:team_id"`
}
