package middleware

import (
	"net"
	"strconv"

	"team_chat_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// Secure 安全响应头，Redirect 打开时把 HTTP 请求重定向到 HTTPS
// dev 模式下不发送 HSTS
func Secure(cfg *config.TLSConfig, dev bool) gin.HandlerFunc {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      dev,
	}
	if cfg.Redirect {
		opts.SSLRedirect = true
		opts.SSLHost = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		opts.STSSeconds = 31536000
	}
	sm := secure.New(opts)

	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			zap.L().Warn("secure middleware rejected request",
				zap.String("host", c.Request.Host),
				zap.Error(err),
			)
			c.Abort()
			return
		}
		// 已经写出重定向
		if c.Writer.Written() {
			c.Abort()
			return
		}
		c.Next()
	}
}
