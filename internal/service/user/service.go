// Package user 用户资料、在线状态与连接初始化所需的成员关系
package user

import (
	"context"
	"strings"
	"time"

	"team_chat_server/internal/dao/database/repository"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PresenceHub 内存中的在线状态，由 Hub 实现
type PresenceHub interface {
	SetPresence(userID uuid.UUID, status model.Presence) bool
	Presence(userID uuid.UUID) model.Presence
	OnlineUsers() map[uuid.UUID]model.Presence
}

// Dispatcher 用户相关事件出口
type Dispatcher interface {
	UserPresence(ctx context.Context, userID uuid.UUID, status model.Presence)
	UserUpdated(ctx context.Context, u event.User, excludeActor bool)
}

// TaskRunner 后台任务池，由 Redis 客户端的 worker pool 实现
type TaskRunner interface {
	SubmitTask(action func())
}

// Memberships 连接建立时需要订阅的团队与频道
type Memberships struct {
	TeamIDs    []uuid.UUID
	ChannelIDs []uuid.UUID
}

// ProfileInput nil 字段不修改
type ProfileInput struct {
	DisplayName *string
	AvatarURL   *string
	Email       *string
}

const persistTimeout = 5 * time.Second

type userService struct {
	repos      *repository.Repositories
	hub        PresenceHub
	dispatcher Dispatcher
	tasks      TaskRunner
	now        func() time.Time
}

// NewUserService 构造函数
func NewUserService(repos *repository.Repositories, hub PresenceHub, dispatcher Dispatcher) *userService {
	return &userService{repos: repos, hub: hub, dispatcher: dispatcher, now: time.Now}
}

// SetTaskRunner 设置后在线状态异步落库
func (s *userService) SetTaskRunner(r TaskRunner) {
	s.tasks = r
}

// LoadMemberships 频道所属团队也计入团队订阅
func (s *userService) LoadMemberships(ctx context.Context, userID uuid.UUID) (*Memberships, error) {
	teamIDs, err := s.repos.TeamMember.ListTeamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.ChannelMember.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(teamIDs))
	out := &Memberships{
		TeamIDs:    make([]uuid.UUID, 0, len(teamIDs)),
		ChannelIDs: make([]uuid.UUID, 0, len(list)),
	}
	for _, t := range teamIDs {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out.TeamIDs = append(out.TeamIDs, t)
		}
	}
	for _, m := range list {
		out.ChannelIDs = append(out.ChannelIDs, m.ChannelID)
		if _, ok := seen[m.TeamID]; !ok && m.TeamID != uuid.Nil {
			seen[m.TeamID] = struct{}{}
			out.TeamIDs = append(out.TeamIDs, m.TeamID)
		}
	}
	return out, nil
}

// SetPresence 用户主动切换状态，没有在线连接时拒绝
func (s *userService) SetPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error {
	if !status.Valid() || status == model.PresenceOffline {
		return errorx.New(errorx.CodeInvalidParam, "invalid presence status")
	}
	if !s.hub.SetPresence(userID, status) {
		return errorx.New(errorx.CodeConflict, "user has no active connection")
	}
	s.dispatcher.UserPresence(ctx, userID, status)
	return s.PersistPresence(ctx, userID, status)
}

// PersistPresence 内存状态以 Hub 为准，落库失败由 SyncPresence 修正
// 配置了任务池时只负责提交，错误写日志
func (s *userService) PersistPresence(ctx context.Context, userID uuid.UUID, status model.Presence) error {
	if s.tasks == nil {
		return s.writePresence(ctx, userID, status, s.now())
	}
	at := s.now()
	s.tasks.SubmitTask(func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		_ = s.writePresence(bg, userID, status, at)
	})
	return nil
}

func (s *userService) writePresence(ctx context.Context, userID uuid.UUID, status model.Presence, at time.Time) error {
	if err := s.repos.User.UpdatePresence(ctx, userID, status, at); err != nil {
		zap.L().Warn("persist presence failed",
			zap.String("user_id", userID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}
	return nil
}

// GetPresence 内存状态
func (s *userService) GetPresence(_ context.Context, userID uuid.UUID) model.Presence {
	return s.hub.Presence(userID)
}

// SyncPresence 按 Hub 修正数据库里的在线状态，返回修正条数
// 进程异常退出后数据库会残留非 offline 的用户
func (s *userService) SyncPresence(ctx context.Context) (int, error) {
	stored, err := s.repos.User.ListNotOffline(ctx)
	if err != nil {
		return 0, err
	}
	live := s.hub.OnlineUsers()
	fixed := 0
	for _, u := range stored {
		want, ok := live[u.ID]
		if !ok {
			want = model.PresenceOffline
		}
		if want == u.Presence {
			continue
		}
		if err := s.repos.User.UpdatePresence(ctx, u.ID, want, s.now()); err != nil {
			return fixed, err
		}
		fixed++
	}
	for id, p := range live {
		if containsUser(stored, id) {
			continue
		}
		if err := s.repos.User.UpdatePresence(ctx, id, p, s.now()); err != nil {
			if errorx.IsNotFound(err) {
				continue
			}
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

func containsUser(users []model.User, id uuid.UUID) bool {
	for i := range users {
		if users[i].ID == id {
			return true
		}
	}
	return false
}

// GetProfile 查询用户资料
func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "user does not exist")
		}
		return nil, err
	}
	u.Presence = s.hub.Presence(userID)
	return u, nil
}

// UpdateProfile 修改资料后广播 user_updated，操作者自己的连接也会收到
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*event.User, error) {
	updates := map[string]any{}
	if in.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Email != nil {
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	if len(updates) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "nothing to update")
	}
	if err := s.repos.User.UpdateProfile(ctx, userID, updates); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "user does not exist")
		}
		return nil, err
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload := event.NewUser(u)
	s.dispatcher.UserUpdated(ctx, payload, false)
	return &payload, nil
}
