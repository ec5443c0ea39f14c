package router

import "github.com/gin-gonic/gin"

// RegisterPostRoutes 消息的增删改、置顶与表情回应
func (rt *Router) RegisterPostRoutes(rg *gin.RouterGroup) {
	rg.POST("/channels/:channel_id/posts", rt.handlers.Post.Create)

	postGroup := rg.Group("/posts/:post_id")
	{
		postGroup.PUT("", rt.handlers.Post.Edit)
		postGroup.DELETE("", rt.handlers.Post.Delete)
		postGroup.POST("/pin", rt.handlers.Post.Pin)
		postGroup.POST("/reactions", rt.handlers.Post.AddReaction)
		postGroup.DELETE("/reactions", rt.handlers.Post.RemoveReaction)
	}
}
