package repository

import (
	"context"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Add(ctx context.Context, reaction *model.Reaction) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reaction)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "添加表情 post=%s", reaction.PostID)
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) Remove(ctx context.Context, userID, postID uuid.UUID, emoji string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ? AND emoji_name = ?", userID, postID, emoji).
		Delete(&model.Reaction{})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "删除表情 post=%s", postID)
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Reaction, error) {
	var reactions []model.Reaction
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询表情 post=%s", postID)
	}
	return reactions, nil
}
