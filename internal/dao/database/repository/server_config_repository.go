package repository

import (
	"context"

	"team_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type serverConfigRepository struct {
	db *gorm.DB
}

func NewServerConfigRepository(db *gorm.DB) ServerConfigRepository {
	return &serverConfigRepository{db: db}
}

func (r *serverConfigRepository) Find(ctx context.Context, category string) (*model.ServerConfig, error) {
	var cfg model.ServerConfig
	if err := r.db.WithContext(ctx).First(&cfg, "category = ?", category).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询配置 category=%s", category)
	}
	return &cfg, nil
}

func (r *serverConfigRepository) Save(ctx context.Context, cfg *model.ServerConfig) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return wrapDBErrorf(err, "保存配置 category=%s", cfg.Category)
	}
	return nil
}
