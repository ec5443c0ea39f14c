// Package router 提供 HTTP 路由注册
// 本文件定义管理员相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes 注册管理员相关路由
// 读取对所有登录用户开放，修改只能由系统管理员调用（在 service 层校验）
func (rt *Router) RegisterAdminRoutes(rg *gin.RouterGroup) {
	adminGroup := rg.Group("/admin")
	{
		adminGroup.GET("/config/:category", rt.handlers.Admin.GetConfig)
		adminGroup.PATCH("/config/:category", rt.handlers.Admin.PatchConfig)
	}
}
