// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"team_chat_server/internal/dao/database/repository"
	cache "team_chat_server/internal/dao/redis"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/realtime/dispatcher"
	"team_chat_server/internal/realtime/hub"
	"team_chat_server/internal/service/admin"
	"team_chat_server/internal/service/channel"
	"team_chat_server/internal/service/post"
	"team_chat_server/internal/service/unread"
	"team_chat_server/internal/service/user"
)

// Services 聚合所有 Service 实例
// Handler 层与 WebSocket 网关通过它访问业务
type Services struct {
	Post    PostService
	Channel ChannelService
	User    UserService
	Unread  UnreadService
	Admin   AdminService
}

// NewServices 创建并注入所有 Service 实例
// post 与 channel 互相依赖：发帖要补齐私聊成员，成员变化要发系统消息，
// 先建 post 再通过 setter 注入
func NewServices(repos *repository.Repositories, store cache.CounterStore, h *hub.Hub, d *dispatcher.Dispatcher, m *metrics.Metrics) *Services {
	tracker := unread.NewTracker(repos, store, d, m)
	postSvc := post.NewPostService(repos, d, tracker)
	channelSvc := channel.NewChannelService(repos, d, h, postSvc, tracker)
	postSvc.SetDirectMembership(channelSvc)
	userSvc := user.NewUserService(repos, h, d)
	if async, ok := store.(cache.AsyncCounterStore); ok {
		userSvc.SetTaskRunner(async)
	}

	return &Services{
		Post:    postSvc,
		Channel: channelSvc,
		User:    userSvc,
		Unread:  tracker,
		Admin:   admin.NewAdminService(repos, d, h),
	}
}
