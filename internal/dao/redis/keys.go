package redis

import (
	"fmt"

	"github.com/google/uuid"
)

// 键格式跨重启保持不变
const (
	unreadKeyFormat     = "unread:%s:%s"
	teamUnreadKeyFormat = "unread_team:%s:%s"
	lastSeqKeyFormat    = "channel:%s:last_seq"
)

// UnreadKey unread:{user_id}:{channel_id}
func UnreadKey(userID, channelID uuid.UUID) string {
	return fmt.Sprintf(unreadKeyFormat, userID, channelID)
}

// TeamUnreadKey unread_team:{user_id}:{team_id}
func TeamUnreadKey(userID, teamID uuid.UUID) string {
	return fmt.Sprintf(teamUnreadKeyFormat, userID, teamID)
}

// LastSeqKey channel:{channel_id}:last_seq
func LastSeqKey(channelID uuid.UUID) string {
	return fmt.Sprintf(lastSeqKeyFormat, channelID)
}

// UserUnreadPatterns 一个用户全部未读键的匹配模式
func UserUnreadPatterns(userID uuid.UUID) []string {
	return []string{
		fmt.Sprintf("unread:%s:*", userID),
		fmt.Sprintf("unread_team:%s:*", userID),
	}
}
