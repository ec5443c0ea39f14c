package handler

import (
	"team_chat_server/internal/dto/request"
	"team_chat_server/internal/model"
	"team_chat_server/internal/service"
	"team_chat_server/internal/service/user"

	"github.com/gin-gonic/gin"
)

// UserHandler 当前用户的资料与在线状态
type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Me GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.userSvc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateMe PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.UpdateProfile(c.Request.Context(), uid, user.ProfileInput{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Email:       req.Email,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SetStatus PUT /api/v1/users/me/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	status := model.Presence(req.Status)
	if err := h.userSvc.SetPresence(c.Request.Context(), uid, status); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"user_id": uid, "status": status})
}
