package model

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember 团队成员关系
// 团队本身由外部模块维护，这里只关心成员关系
type TeamMember struct {
	TeamID    uuid.UUID `gorm:"column:team_id;type:char(36);primaryKey" json:"team_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:char(36);primaryKey;index" json:"user_id"`
	Role      string    `gorm:"column:role;type:varchar(32);not null;default:member" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
