package router

import "github.com/gin-gonic/gin"

// RegisterChannelRoutes 频道与成员
func (rt *Router) RegisterChannelRoutes(rg *gin.RouterGroup) {
	channelGroup := rg.Group("/channels")
	{
		channelGroup.POST("", rt.handlers.Channel.Create)
		channelGroup.POST("/direct", rt.handlers.Channel.Direct)
		channelGroup.PUT("/:channel_id", rt.handlers.Channel.Update)
		channelGroup.DELETE("/:channel_id", rt.handlers.Channel.Archive)
		channelGroup.POST("/:channel_id/members", rt.handlers.Channel.AddMember)
		channelGroup.DELETE("/:channel_id/members/:user_id", rt.handlers.Channel.RemoveMember)
	}
}
