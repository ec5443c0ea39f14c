package middleware

import (
	"net/http"
	"strings"

	"team_chat_server/pkg/constants"
	"team_chat_server/pkg/errorx"
	"team_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JWTAuth JWT 认证中间件
// 验证 Access Token 并将用户 ID 与角色存入上下文
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing Authorization header")
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "use a Bearer token")
			return
		}

		// 3. 验证 Token 类型与签名
		claims, err := jwt.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "token expired or invalid")
			return
		}
		uid, err := claims.UID()
		if err != nil {
			abortUnauthorized(c, "token carries an invalid user id")
			return
		}

		// 4. 将用户信息存入上下文，供后续 Handler 使用
		c.Set(constants.CTX_USER_ID, uid)
		c.Set(constants.CTX_ROLE, claims.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

// UserID 读取 JWTAuth 写入的用户 ID
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(constants.CTX_USER_ID)
	if !ok {
		return uuid.Nil, false
	}
	uid, ok := v.(uuid.UUID)
	return uid, ok
}
