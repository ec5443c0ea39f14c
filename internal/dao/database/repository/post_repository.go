package repository

import (
	"context"
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建消息 Repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 channel=%s seq=%d", post.ChannelID, post.Seq)
	}
	return nil
}

// FindByID 包含已删除的消息，调用方自行判断
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 id=%s", id)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "更新消息 id=%s", id)
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "更新消息 id=%s", id)
	}
	return nil
}

func (r *postRepository) IncrementReplyCount(ctx context.Context, rootID uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", rootID).
		Updates(map[string]any{
			"reply_count":   gorm.Expr("reply_count + 1"),
			"last_reply_at": at,
		}).Error
	if err != nil {
		return wrapDBErrorf(err, "更新回复数 root=%s", rootID)
	}
	return nil
}

func (r *postRepository) CountAfterSeq(ctx context.Context, channelID uuid.UUID, afterSeq int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("channel_id = ? AND seq > ? AND deleted_at IS NULL", channelID, afterSeq).
		Count(&n).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "统计未读 channel=%s", channelID)
	}
	return n, nil
}

func (r *postRepository) MaxSeq(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("channel_id = ?", channelID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&seq).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "查询最大序号 channel=%s", channelID)
	}
	return seq, nil
}
