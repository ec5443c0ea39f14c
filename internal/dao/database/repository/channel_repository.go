package repository

import (
	"context"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建频道 Repository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return wrapDBErrorf(err, "创建频道 name=%s", channel.Name)
	}
	return nil
}

func (r *channelRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道 id=%s", id)
	}
	return &channel, nil
}

func (r *channelRepository) FindByTeamAndName(ctx context.Context, teamID uuid.UUID, name string) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND name = ?", teamID, name).
		First(&channel).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询频道 team=%s name=%s", teamID, name)
	}
	return &channel, nil
}

func (r *channelRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Channel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "更新频道 id=%s", id)
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "更新频道 id=%s", id)
	}
	return nil
}

// NextSeq UPDATE 会对频道行加写锁，同一频道的并发发帖在此串行
func (r *channelRepository) NextSeq(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Channel{}).
		Where("id = ?", id).
		UpdateColumn("last_post_seq", gorm.Expr("last_post_seq + 1"))
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "分配消息序号 channel=%s", id)
	}
	if res.RowsAffected == 0 {
		return 0, wrapDBErrorf(gorm.ErrRecordNotFound, "分配消息序号 channel=%s", id)
	}
	var channel model.Channel
	err := r.db.WithContext(ctx).Select("last_post_seq").First(&channel, "id = ?", id).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "读取消息序号 channel=%s", id)
	}
	return channel.LastPostSeq, nil
}
