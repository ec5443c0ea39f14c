package repository

import (
	"context"
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户 Repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 id=%s", id)
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "批量查询用户")
	}
	return users, nil
}

func (r *userRepository) FindFirstSystemAdmin(ctx context.Context) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("role = ?", model.RoleSystemAdmin).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		return nil, wrapDBError(err, "查询系统管理员")
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapDBError(err, "创建用户")
	}
	return nil
}

// UpdateProfile 只更新传入的列
func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "更新用户资料 id=%s", id)
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "更新用户资料 id=%s", id)
	}
	return nil
}

// UpdatePresence 只接受不早于已落库 last_seen_at 的写入，乱序到达的旧状态被丢弃
// at 统一转成 UTC，保证 sqlite 文本时间可比较
func (r *userRepository) UpdatePresence(ctx context.Context, id uuid.UUID, presence model.Presence, at time.Time) error {
	at = at.UTC()
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND (last_seen_at IS NULL OR last_seen_at <= ?)", id, at).
		Updates(map[string]any{"presence": presence, "last_seen_at": at}).Error
	if err != nil {
		return wrapDBErrorf(err, "更新在线状态 id=%s", id)
	}
	return nil
}

func (r *userRepository) ListNotOffline(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Select("id", "presence").
		Where("presence <> ?", model.PresenceOffline).
		Find(&users).Error
	if err != nil {
		return nil, wrapDBError(err, "查询非离线用户")
	}
	return users, nil
}
