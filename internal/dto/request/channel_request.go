package request

import "github.com/google/uuid"

// CreateChannelRequest 创建频道
// 使用位置: handler.ChannelHandler.Create
type CreateChannelRequest struct {
	TeamID      uuid.UUID   `json:"team_id" binding:"required"`
	Name        string      `json:"name" binding:"required,max=64"`
	DisplayName string      `json:"display_name" binding:"max=128"`
	Purpose     string      `json:"purpose" binding:"max=255"`
	Header      string      `json:"header" binding:"max=1024"`
	Type        string      `json:"type" binding:"required,oneof=public private group"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
}

// UpdateChannelRequest 修改频道展示信息，缺省字段不修改
type UpdateChannelRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Purpose     *string `json:"purpose" binding:"omitempty,max=255"`
	Header      *string `json:"header" binding:"omitempty,max=1024"`
}

// AddMemberRequest 加入频道
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// DirectChannelRequest 打开私聊
type DirectChannelRequest struct {
	TeamID uuid.UUID `json:"team_id" binding:"required"`
	UserID uuid.UUID `json:"user_id" binding:"required"`
}
