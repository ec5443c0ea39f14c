// Package databasetest 为各层测试提供迁移好的 sqlite 内存库
package databasetest

import (
	"context"
	"testing"

	"team_chat_server/internal/config"
	"team_chat_server/internal/dao/database"
	"team_chat_server/internal/dao/database/repository"
	"team_chat_server/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// New 每次调用都是一个独立的空库
func New(t testing.TB) *repository.Repositories {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

// CreateUser 用户名取 ID 前八位
func CreateUser(t testing.TB, repos *repository.Repositories, role string) *model.User {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	u := &model.User{ID: id, Username: "u" + id.String()[:8] + id.String()[24:], Role: role}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

// CreateChannel 创建频道并把 members 加入
func CreateChannel(t testing.TB, repos *repository.Repositories, teamID uuid.UUID, typ model.ChannelType, name string, members ...uuid.UUID) *model.Channel {
	t.Helper()
	ctx := context.Background()
	ch := &model.Channel{TeamID: teamID, Name: name, DisplayName: name, Type: typ}
	if len(members) > 0 {
		ch.CreatorID = members[0]
	}
	require.NoError(t, repos.Channel.Create(ctx, ch))
	for _, u := range members {
		_, err := repos.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: ch.ID, UserID: u})
		require.NoError(t, err)
	}
	return ch
}
