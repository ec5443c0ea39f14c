// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"team_chat_server/internal/handler"
	"team_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合对象
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// WebSocket 在握手后自行鉴权，不经过 JWTAuth
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.RegisterWebSocketRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth())
	{
		rt.RegisterUnreadRoutes(api)
		rt.RegisterPostRoutes(api)
		rt.RegisterChannelRoutes(api)
		rt.RegisterUserRoutes(api)
		rt.RegisterAdminRoutes(api)
	}
}
