package request

// SetStatusRequest 修改在线状态，offline 只能由断开连接产生
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=online away dnd"`
}

// UpdateProfileRequest 修改个人资料
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=512"`
	Email       *string `json:"email" binding:"omitempty,email"`
}
