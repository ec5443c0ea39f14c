// Package admin 运行期可修改的服务端配置
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"team_chat_server/internal/dao/database/repository"
	"team_chat_server/internal/model"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// 配置类别
const (
	CategoryWebsocket = "websocket"
	CategoryPosts     = "posts"

	KeyMaxSessionsPerUser = "max_sessions_per_user"
)

// Dispatcher config_updated 出口
type Dispatcher interface {
	ConfigUpdated(ctx context.Context, category string, cfg map[string]any)
}

// SessionQuota 由 Hub 实现
type SessionQuota interface {
	SetMaxSessionsPerUser(n int)
}

type adminService struct {
	repos      *repository.Repositories
	dispatcher Dispatcher
	quota      SessionQuota
}

// NewAdminService 构造函数
func NewAdminService(repos *repository.Repositories, dispatcher Dispatcher, quota SessionQuota) *adminService {
	return &adminService{repos: repos, dispatcher: dispatcher, quota: quota}
}

// GetConfig 未保存过的类别返回空配置
func (s *adminService) GetConfig(ctx context.Context, category string) (map[string]any, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "category required")
	}
	cfg, err := s.repos.ServerConfig.Find(ctx, category)
	if err != nil {
		if errorx.IsNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if cfg.Value == nil {
		return map[string]any{}, nil
	}
	return map[string]any(cfg.Value), nil
}

// PatchConfig 合并写入，值为 null 的键被删除
func (s *adminService) PatchConfig(ctx context.Context, actorID uuid.UUID, category string, values map[string]any) (map[string]any, error) {
	actor, err := s.repos.User.FindByID(ctx, actorID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrForbidden
		}
		return nil, err
	}
	if !actor.IsSystemAdmin() {
		return nil, errorx.ErrForbidden
	}
	if len(values) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "nothing to update")
	}
	category = strings.ToLower(strings.TrimSpace(category))

	quota := -1
	if category == CategoryWebsocket {
		if raw, ok := values[KeyMaxSessionsPerUser]; ok && raw != nil {
			n, err := toInt(raw)
			if err != nil || n < 0 {
				return nil, errorx.Newf(errorx.CodeInvalidParam, "%s must be a non-negative integer", KeyMaxSessionsPerUser)
			}
			values[KeyMaxSessionsPerUser] = n
			quota = n
		}
	}

	merged, err := s.GetConfig(ctx, category)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	err = s.repos.ServerConfig.Save(ctx, &model.ServerConfig{
		Category:  category,
		Value:     datatypes.JSONMap(merged),
		UpdatedBy: actorID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if quota >= 0 && s.quota != nil {
		s.quota.SetMaxSessionsPerUser(quota)
	}
	s.dispatcher.ConfigUpdated(ctx, category, merged)
	zap.L().Info("server config updated",
		zap.String("category", category),
		zap.String("actor_id", actorID.String()),
		zap.Int("keys", len(values)))
	return merged, nil
}

// ApplyStored 启动时把已保存的配置应用到 Hub
func (s *adminService) ApplyStored(ctx context.Context) error {
	cfg, err := s.GetConfig(ctx, CategoryWebsocket)
	if err != nil {
		return err
	}
	raw, ok := cfg[KeyMaxSessionsPerUser]
	if !ok || s.quota == nil {
		return nil
	}
	n, err := toInt(raw)
	if err != nil || n < 0 {
		zap.L().Warn("ignore stored session quota", zap.Any("value", raw))
		return nil
	}
	s.quota.SetMaxSessionsPerUser(n)
	return nil
}

// toInt 请求体中的数字是 float64，从 JSON 列读回的是 json.Number
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("not an integer: %s", n)
		}
		return int(i), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}
