package router

import "github.com/gin-gonic/gin"

// RegisterUserRoutes 当前用户
func (rt *Router) RegisterUserRoutes(rg *gin.RouterGroup) {
	userGroup := rg.Group("/users/me")
	{
		userGroup.GET("", rt.handlers.User.Me)
		userGroup.PUT("", rt.handlers.User.UpdateMe)
		userGroup.PUT("/status", rt.handlers.User.SetStatus)
	}
}
