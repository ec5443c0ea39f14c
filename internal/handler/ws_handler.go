package handler

import (
	"team_chat_server/internal/gateway/websocket"

	"github.com/gin-gonic/gin"
)

// WsHandler 两个 WebSocket 端点，认证在连接内完成
type WsHandler struct {
	mgr *websocket.Manager
}

func NewWsHandler(mgr *websocket.Manager) *WsHandler {
	return &WsHandler{mgr: mgr}
}

// Native GET /api/v1/ws
func (h *WsHandler) Native(c *gin.Context) {
	h.mgr.ServeNative(c.Writer, c.Request)
}

// Compat GET /api/v4/websocket
func (h *WsHandler) Compat(c *gin.Context) {
	h.mgr.ServeCompat(c.Writer, c.Request)
}
