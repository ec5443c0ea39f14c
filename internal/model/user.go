// Package model 定义数据库实体模型
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Presence 在线状态
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceAway    Presence = "away"
	PresenceDnd     Presence = "dnd"
	PresenceOffline Presence = "offline"
)

// Valid 是否为已知状态
func (p Presence) Valid() bool {
	switch p {
	case PresenceOnline, PresenceAway, PresenceDnd, PresenceOffline:
		return true
	}
	return false
}

// 用户角色
const (
	RoleSystemAdmin = "system_admin"
	RoleMember      = "member"
)

// User 用户
// 账号注册/登录由外部服务负责，这里只读写资料与在线状态
type User struct {
	ID          uuid.UUID  `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	Username    string     `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	DisplayName string     `gorm:"column:display_name;type:varchar(128)" json:"display_name"`
	Email       string     `gorm:"column:email;type:varchar(255)" json:"email"`
	AvatarURL   string     `gorm:"column:avatar_url;type:varchar(512)" json:"avatar_url,omitempty"`
	Role        string     `gorm:"column:role;type:varchar(32);not null;default:member" json:"role"`
	Presence    Presence   `gorm:"column:presence;type:varchar(16);not null;default:offline;index" json:"presence"`
	LastSeenAt  *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate 未指定 ID 时生成按时间有序的 UUIDv7
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id
	}
	if u.Presence == "" {
		u.Presence = PresenceOffline
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	return nil
}

// Name 展示名，为空时退回用户名
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// IsSystemAdmin 是否系统管理员
func (u *User) IsSystemAdmin() bool {
	return u.Role == RoleSystemAdmin
}
