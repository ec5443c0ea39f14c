package constants

import "time"

const (
	CHANNEL_SIZE            = 100 // 每个会话出站队列容量
	MAX_SESSIONS_PER_USER   = 5   // 单用户最大并发会话数
	MAX_PARSE_ERRORS        = 5   // 连续解析失败多少次后断开
	MAX_MESSAGE_SIZE        = 64 * 1024
	ACCESS_TOKEN_EXPIRY_MIN = 60 // Access Token 有效期（分钟）

	AUTH_TIMEOUT = 10 * time.Second
	WRITE_WAIT   = 10 * time.Second
	PONG_WAIT    = 60 * time.Second

	SERVER_VERSION = "1.0.0"
)

// WebSocket 关闭码
const (
	CLOSE_NORMAL           = 1000
	CLOSE_POLICY_VIOLATION = 1008
	CLOSE_SERVER_ERROR     = 1011
	CLOSE_UNAUTHORIZED     = 4001
	CLOSE_QUOTA_EXCEEDED   = 4008
)

// gin 上下文键
const (
	CTX_USER_ID = "user_id"
	CTX_ROLE    = "role"
)
