// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"team_chat_server/internal/gateway/websocket"
	"team_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例，Router 层通过它注册路由
type Handlers struct {
	Ws      *WsHandler
	Unread  *UnreadHandler
	Post    *PostHandler
	Channel *ChannelHandler
	User    *UserHandler
	Admin   *AdminHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, ws *websocket.Manager) *Handlers {
	return &Handlers{
		Ws:      NewWsHandler(ws),
		Unread:  NewUnreadHandler(svc.Unread),
		Post:    NewPostHandler(svc.Post),
		Channel: NewChannelHandler(svc.Channel),
		User:    NewUserHandler(svc.User),
		Admin:   NewAdminHandler(svc.Admin),
	}
}
