package repository

import (
	"context"
	"errors"
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type channelReadRepository struct {
	db *gorm.DB
}

// NewChannelReadRepository 创建已读游标 Repository
func NewChannelReadRepository(db *gorm.DB) ChannelReadRepository {
	return &channelReadRepository{db: db}
}

func (r *channelReadRepository) Upsert(ctx context.Context, userID, channelID uuid.UUID, seq int64, at time.Time) error {
	row := model.ChannelRead{
		UserID:             userID,
		ChannelID:          channelID,
		LastReadMessageSeq: seq,
		LastReadAt:         at,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_message_seq", "last_read_at"}),
	}).Create(&row).Error
	if err != nil {
		return wrapDBErrorf(err, "写入已读游标 user=%s channel=%s", userID, channelID)
	}
	return nil
}

func (r *channelReadRepository) LastReadSeq(ctx context.Context, userID, channelID uuid.UUID) (int64, error) {
	var row model.ChannelRead
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapDBErrorf(err, "查询已读游标 user=%s channel=%s", userID, channelID)
	}
	return row.LastReadMessageSeq, nil
}

func (r *channelReadRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChannelRead, error) {
	var rows []model.ChannelRead
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询已读游标 user=%s", userID)
	}
	return rows, nil
}
