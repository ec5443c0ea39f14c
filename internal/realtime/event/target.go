package event

import (
	"fmt"

	"github.com/google/uuid"
)

// TargetKind 路由目标类型
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetChannel
	TargetTeam
	TargetUser
	TargetAll
	// TargetSession 只投递给单个连接，用于 hello、ack 和命令错误
	TargetSession
)

// Target 路由描述，只在进程内使用，不会序列化
type Target struct {
	Kind      TargetKind
	ID        uuid.UUID // 频道、团队或用户 ID
	Exclude   uuid.UUID // uuid.Nil 表示不排除
	SessionID string
}

// ToChannel 频道订阅者
func ToChannel(channelID uuid.UUID) Target {
	return Target{Kind: TargetChannel, ID: channelID}
}

// ToTeam 团队订阅者
func ToTeam(teamID uuid.UUID) Target {
	return Target{Kind: TargetTeam, ID: teamID}
}

// ToUser 用户的全部连接
func ToUser(userID uuid.UUID) Target {
	return Target{Kind: TargetUser, ID: userID}
}

// ToAll 所有连接
func ToAll() Target {
	return Target{Kind: TargetAll}
}

// ToSession 单个连接
func ToSession(sessionID string) Target {
	return Target{Kind: TargetSession, SessionID: sessionID}
}

// Excluding 排除某个用户的全部连接
func (t Target) Excluding(userID uuid.UUID) Target {
	t.Exclude = userID
	return t
}

func (t Target) String() string {
	switch t.Kind {
	case TargetChannel:
		return fmt.Sprintf("channel:%s exclude:%s", t.ID, t.Exclude)
	case TargetTeam:
		return fmt.Sprintf("team:%s exclude:%s", t.ID, t.Exclude)
	case TargetUser:
		return "user:" + t.ID.String()
	case TargetAll:
		return "all"
	case TargetSession:
		return "session:" + t.SessionID
	}
	return "none"
}
