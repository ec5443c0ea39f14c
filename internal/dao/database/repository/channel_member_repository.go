package repository

import (
	"context"
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type channelMemberRepository struct {
	db *gorm.DB
}

// NewChannelMemberRepository 创建频道成员 Repository
func NewChannelMemberRepository(db *gorm.DB) ChannelMemberRepository {
	return &channelMemberRepository{db: db}
}

func (r *channelMemberRepository) Add(ctx context.Context, member *model.ChannelMember) (bool, error) {
	if member.Role == "" {
		member.Role = model.ChannelRoleMember
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "添加频道成员 channel=%s user=%s", member.ChannelID, member.UserID)
	}
	return res.RowsAffected > 0, nil
}

func (r *channelMemberRepository) Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&model.ChannelMember{})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "移除频道成员 channel=%s user=%s", channelID, userID)
	}
	return res.RowsAffected > 0, nil
}

func (r *channelMemberRepository) Find(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error) {
	var member model.ChannelMember
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		First(&member).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询频道成员 channel=%s user=%s", channelID, userID)
	}
	return &member, nil
}

func (r *channelMemberRepository) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&n).Error
	if err != nil {
		return false, wrapDBError(err, "查询频道成员")
	}
	return n > 0, nil
}

func (r *channelMemberRepository) ListUserIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ChannelMember{}).
		Where("channel_id = ?", channelID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询频道成员列表 channel=%s", channelID)
	}
	return ids, nil
}

func (r *channelMemberRepository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.Membership, error) {
	var out []model.Membership
	err := r.db.WithContext(ctx).
		Table("channel_members AS cm").
		Select("cm.channel_id AS channel_id, c.team_id AS team_id").
		Joins("JOIN channels AS c ON c.id = cm.channel_id").
		Where("cm.user_id = ?", userID).
		Order("cm.channel_id").
		Scan(&out).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户频道 user=%s", userID)
	}
	return out, nil
}

func (r *channelMemberRepository) TouchLastViewed(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("last_viewed_at", at).Error
	if err != nil {
		return wrapDBErrorf(err, "更新 last_viewed_at channel=%s user=%s", channelID, userID)
	}
	return nil
}
