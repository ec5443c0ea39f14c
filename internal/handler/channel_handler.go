package handler

import (
	"team_chat_server/internal/dto/request"
	"team_chat_server/internal/model"
	"team_chat_server/internal/service"
	"team_chat_server/internal/service/channel"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道与成员接口
type ChannelHandler struct {
	channelSvc service.ChannelService
}

func NewChannelHandler(channelSvc service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc}
}

// Create POST /api/v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.CreateChannel(c.Request.Context(), uid, channel.CreateInput{
		TeamID:      req.TeamID,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Purpose:     req.Purpose,
		Header:      req.Header,
		Type:        model.ChannelType(req.Type),
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Direct POST /api/v1/channels/direct
func (h *ChannelHandler) Direct(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.DirectChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, created, err := h.channelSvc.GetOrCreateDirectChannel(c.Request.Context(), req.TeamID, uid, req.UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"channel": data, "created": created})
}

// Update PUT /api/v1/channels/:channel_id
func (h *ChannelHandler) Update(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	var req request.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.UpdateChannel(c.Request.Context(), uid, channelID, channel.UpdateInput{
		DisplayName: req.DisplayName,
		Purpose:     req.Purpose,
		Header:      req.Header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Archive DELETE /api/v1/channels/:channel_id
func (h *ChannelHandler) Archive(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	if err := h.channelSvc.ArchiveChannel(c.Request.Context(), uid, channelID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// AddMember POST /api/v1/channels/:channel_id/members
func (h *ChannelHandler) AddMember(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	var req request.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.channelSvc.AddMember(c.Request.Context(), uid, channelID, req.UserID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// RemoveMember DELETE /api/v1/channels/:channel_id/members/:user_id
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	target, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	if err := h.channelSvc.RemoveMember(c.Request.Context(), uid, channelID, target); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
