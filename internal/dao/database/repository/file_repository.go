package repository

import (
	"context"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *model.FileInfo) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return wrapDBError(err, "保存附件信息")
	}
	return nil
}

func (r *fileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.FileInfo, error) {
	var files []model.FileInfo
	if len(ids) == 0 {
		return files, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, wrapDBError(err, "查询附件信息")
	}
	return files, nil
}
