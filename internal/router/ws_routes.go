package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 入口
// /api/v4/websocket 兼容旧客户端的 seq/action 协议
func (rt *Router) RegisterWebSocketRoutes(r *gin.Engine) {
	r.GET("/api/v1/ws", rt.handlers.Ws.Native)
	r.GET("/api/v4/websocket", rt.handlers.Ws.Compat)
}
