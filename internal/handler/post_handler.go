package handler

import (
	"team_chat_server/internal/dto/request"
	"team_chat_server/internal/service"
	"team_chat_server/internal/service/post"

	"github.com/gin-gonic/gin"
)

// PostHandler 消息接口，与 WebSocket send_message 走同一条落库与广播路径
type PostHandler struct {
	postSvc service.PostService
}

func NewPostHandler(postSvc service.PostService) *PostHandler {
	return &PostHandler{postSvc: postSvc}
}

// Create POST /api/v1/channels/:channel_id/posts
func (h *PostHandler) Create(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	channelID, ok := pathUUID(c, "channel_id")
	if !ok {
		return
	}
	var req request.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.postSvc.CreatePost(c.Request.Context(), uid, channelID, post.CreateInput{
		Message:     req.Message,
		RootPostID:  req.RootPostID,
		Props:       req.Props,
		FileIDs:     req.FileIDs,
		ClientMsgID: req.ClientMsgID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Edit PUT /api/v1/posts/:post_id
func (h *PostHandler) Edit(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathUUID(c, "post_id")
	if !ok {
		return
	}
	var req request.EditPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.postSvc.EditPost(c.Request.Context(), uid, postID, req.Message)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Delete DELETE /api/v1/posts/:post_id
func (h *PostHandler) Delete(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathUUID(c, "post_id")
	if !ok {
		return
	}
	if err := h.postSvc.DeletePost(c.Request.Context(), uid, postID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Pin POST /api/v1/posts/:post_id/pin
func (h *PostHandler) Pin(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathUUID(c, "post_id")
	if !ok {
		return
	}
	var req request.PinPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.postSvc.SetPinned(c.Request.Context(), uid, postID, *req.Pinned)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// AddReaction POST /api/v1/posts/:post_id/reactions
func (h *PostHandler) AddReaction(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathUUID(c, "post_id")
	if !ok {
		return
	}
	var req request.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.postSvc.AddReaction(c.Request.Context(), uid, postID, req.EmojiName)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RemoveReaction DELETE /api/v1/posts/:post_id/reactions
func (h *PostHandler) RemoveReaction(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathUUID(c, "post_id")
	if !ok {
		return
	}
	var req request.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.postSvc.RemoveReaction(c.Request.Context(), uid, postID, req.EmojiName); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
