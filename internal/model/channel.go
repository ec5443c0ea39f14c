package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelType 频道类型
type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
	ChannelDirect  ChannelType = "direct"
	ChannelGroup   ChannelType = "group"
)

// Valid 是否为已知类型
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelPublic, ChannelPrivate, ChannelDirect, ChannelGroup:
		return true
	}
	return false
}

const directChannelPrefix = "dm_"

// Channel 频道
// LastPostSeq 是频道内消息序号的分配器，只在发帖事务中自增
type Channel struct {
	ID          uuid.UUID   `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	TeamID      uuid.UUID   `gorm:"column:team_id;type:char(36);not null;uniqueIndex:idx_channels_team_name,priority:1" json:"team_id"`
	Name        string      `gorm:"column:name;type:varchar(128);not null;uniqueIndex:idx_channels_team_name,priority:2" json:"name"`
	DisplayName string      `gorm:"column:display_name;type:varchar(128)" json:"display_name"`
	Purpose     string      `gorm:"column:purpose;type:varchar(255)" json:"purpose"`
	Header      string      `gorm:"column:header;type:varchar(1024)" json:"header"`
	Type        ChannelType `gorm:"column:type;type:varchar(16);not null" json:"type"`
	IsArchived  bool        `gorm:"column:is_archived;not null;default:false" json:"is_archived"`
	CreatorID   uuid.UUID   `gorm:"column:creator_id;type:char(36)" json:"creator_id"`
	LastPostSeq int64       `gorm:"column:last_post_seq;not null;default:0" json:"last_post_seq"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// BeforeCreate 未指定 ID 时生成 UUIDv7
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		c.ID = id
	}
	return nil
}

// DirectChannelName 私聊频道名由两个参与者 ID 排序拼接
// 成员行丢失时可据此恢复
func DirectChannelName(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return directChannelPrefix + x + "_" + y
}

// ParseDirectChannelName 从私聊频道名解析两个参与者
func ParseDirectChannelName(name string) (uuid.UUID, uuid.UUID, error) {
	if !strings.HasPrefix(name, directChannelPrefix) {
		return uuid.Nil, uuid.Nil, fmt.Errorf("not a direct channel name: %q", name)
	}
	parts := strings.Split(strings.TrimPrefix(name, directChannelPrefix), "_")
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed direct channel name: %q", name)
	}
	a, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	b, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return a, b, nil
}
