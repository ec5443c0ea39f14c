package request

import "github.com/google/uuid"

// CreatePostRequest 发消息
// 使用位置: handler.PostHandler.Create
type CreatePostRequest struct {
	Message     string         `json:"message" binding:"max=16383"`
	RootPostID  *uuid.UUID     `json:"root_post_id"`
	Props       map[string]any `json:"props"`
	FileIDs     []uuid.UUID    `json:"file_ids" binding:"max=10"`
	ClientMsgID string         `json:"client_msg_id" binding:"max=64"`
}

// EditPostRequest 编辑消息
type EditPostRequest struct {
	Message string `json:"message" binding:"required,max=16383"`
}

// PinPostRequest 置顶或取消置顶
type PinPostRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// ReactionRequest 添加或移除表情回应
type ReactionRequest struct {
	EmojiName string `json:"emoji_name" binding:"required,max=64"`
}
