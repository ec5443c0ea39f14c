package repository

import (
	"context"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type teamMemberRepository struct {
	db *gorm.DB
}

func NewTeamMemberRepository(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepository{db: db}
}

func (r *teamMemberRepository) Create(ctx context.Context, member *model.TeamMember) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
	if err != nil {
		return wrapDBErrorf(err, "加入团队 team=%s user=%s", member.TeamID, member.UserID)
	}
	return nil
}

func (r *teamMemberRepository) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&n).Error
	if err != nil {
		return false, wrapDBError(err, "查询团队成员")
	}
	return n > 0, nil
}

func (r *teamMemberRepository) ListTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.TeamMember{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户团队 user=%s", userID)
	}
	return ids, nil
}
