package handler

import (
	"errors"
	"io"

	"team_chat_server/internal/dto/request"
	"team_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// UnreadHandler 未读计数接口
type UnreadHandler struct {
	unreadSvc service.UnreadService
}

func NewUnreadHandler(unreadSvc service.UnreadService) *UnreadHandler {
	return &UnreadHandler{unreadSvc: unreadSvc}
}

// Overview GET /api/v1/unreads
func (h *UnreadHandler) Overview(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.unreadSvc.GetUnreadOverview(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkChannelRead POST /api/v1/channels/:channel_id/read
// 请求体可以为空
func (h *UnreadHandler) MarkChannelRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		HandleParamError(c, err)
		return
	}
	data, err := h.unreadSvc.MarkChannelAsRead(c.Request.Context(), uid, channelID, req.TargetSeq)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkAllRead POST /api/v1/unreads/read_all
func (h *UnreadHandler) MarkAllRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.unreadSvc.MarkAllAsRead(c.Request.Context(), uid); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
