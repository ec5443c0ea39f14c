package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post 消息
// Seq 在频道内严格递增，(channel_id, seq) 唯一
// 删除只写 deleted_at，所有未读计算都带 deleted_at IS NULL
type Post struct {
	ID          uuid.UUID                      `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	ChannelID   uuid.UUID                      `gorm:"column:channel_id;type:char(36);not null;uniqueIndex:idx_posts_channel_seq,priority:1" json:"channel_id"`
	UserID      uuid.UUID                      `gorm:"column:user_id;type:char(36);not null;index" json:"user_id"`
	RootPostID  *uuid.UUID                     `gorm:"column:root_post_id;type:char(36);index" json:"root_post_id,omitempty"`
	Message     string                         `gorm:"column:message;type:text" json:"message"`
	Props       datatypes.JSONMap              `gorm:"column:props" json:"props"`
	FileIDs     datatypes.JSONSlice[uuid.UUID] `gorm:"column:file_ids" json:"file_ids"`
	IsPinned    bool                           `gorm:"column:is_pinned;not null;default:false" json:"is_pinned"`
	ReplyCount  int64                          `gorm:"column:reply_count;not null;default:0" json:"reply_count"`
	LastReplyAt *time.Time                     `gorm:"column:last_reply_at" json:"last_reply_at,omitempty"`
	Seq         int64                          `gorm:"column:seq;not null;uniqueIndex:idx_posts_channel_seq,priority:2" json:"seq"`
	CreatedAt   time.Time                      `json:"created_at"`
	EditedAt    *time.Time                     `gorm:"column:edited_at" json:"edited_at,omitempty"`
	DeletedAt   *time.Time                     `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (Post) TableName() string {
	return "posts"
}

// BeforeCreate 未指定 ID 时生成 UUIDv7
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	if p.Props == nil {
		p.Props = datatypes.JSONMap{}
	}
	if p.FileIDs == nil {
		p.FileIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}

// IsReply 是否为线程回复
func (p *Post) IsReply() bool {
	return p.RootPostID != nil && *p.RootPostID != uuid.Nil
}

// IsDeleted 是否已删除
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}
