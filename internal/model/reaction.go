package model

import (
	"time"

	"github.com/google/uuid"
)

// Reaction 表情回应
// ChannelID 冗余存储，广播时无需回查消息
type Reaction struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:char(36);primaryKey" json:"user_id"`
	PostID    uuid.UUID `gorm:"column:post_id;type:char(36);primaryKey;index" json:"post_id"`
	EmojiName string    `gorm:"column:emoji_name;type:varchar(64);primaryKey" json:"emoji_name"`
	ChannelID uuid.UUID `gorm:"column:channel_id;type:char(36);not null" json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Reaction) TableName() string {
	return "reactions"
}
