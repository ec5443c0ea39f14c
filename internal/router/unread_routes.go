package router

import "github.com/gin-gonic/gin"

// RegisterUnreadRoutes 未读计数
func (rt *Router) RegisterUnreadRoutes(rg *gin.RouterGroup) {
	rg.GET("/unreads", rt.handlers.Unread.Overview)
	rg.POST("/unreads/read_all", rt.handlers.Unread.MarkAllRead)
	rg.POST("/channels/:channel_id/read", rt.handlers.Unread.MarkChannelRead)
}
