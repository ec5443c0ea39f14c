package model

import (
	"time"

	"github.com/google/uuid"
)

// ChannelRead 已读游标，未读数的唯一权威来源
type ChannelRead struct {
	UserID             uuid.UUID `gorm:"column:user_id;type:char(36);primaryKey" json:"user_id"`
	ChannelID          uuid.UUID `gorm:"column:channel_id;type:char(36);primaryKey" json:"channel_id"`
	LastReadMessageSeq int64     `gorm:"column:last_read_message_seq;not null;default:0" json:"last_read_message_seq"`
	LastReadAt         time.Time `gorm:"column:last_read_at" json:"last_read_at"`
}

func (ChannelRead) TableName() string {
	return "channel_reads"
}
