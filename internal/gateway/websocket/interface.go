package websocket

import (
	"context"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/internal/realtime/hub"
	"team_chat_server/internal/service/post"
	"team_chat_server/internal/service/user"

	"github.com/google/uuid"
)

// SessionHub 连接层用到的 Hub 能力
type SessionHub interface {
	Connect(userID uuid.UUID, username string) (hub.Connection, error)
	Disconnect(sessionID string) hub.DisconnectResult
	SubscribeChannel(sessionID string, channelID uuid.UUID) bool
	UnsubscribeChannel(sessionID string, channelID uuid.UUID) bool
	SubscribeTeam(sessionID string, teamID uuid.UUID) bool
	IsSubscribed(sessionID string, channelID uuid.UUID) bool
	Deliver(sessionID string, env event.Envelope) bool
}

// EventSink 连接层直接产生的事件
type EventSink interface {
	Typing(ctx context.Context, channelID uuid.UUID, t event.Typing, stop bool)
	UserPresence(ctx context.Context, userID uuid.UUID, status model.Presence)
}

// PostCreator send_message 命令的落库入口
type PostCreator interface {
	CreatePost(ctx context.Context, authorID, channelID uuid.UUID, in post.CreateInput) (*event.Post, error)
}

// UserService 连接初始化与在线状态
type UserService interface {
	LoadMemberships(ctx context.Context, userID uuid.UUID) (*user.Memberships, error)
	SetPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error
	PersistPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error
}

// ChannelAccess subscribe_channel 前的权限校验
type ChannelAccess interface {
	CheckAccess(ctx context.Context, userID, channelID uuid.UUID) error
}

// Deps Manager 的依赖
type Deps struct {
	Hub      SessionHub
	Events   EventSink
	Posts    PostCreator
	Users    UserService
	Channels ChannelAccess
}
