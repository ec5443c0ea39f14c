// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件和路由
package https_server

import (
	"net/http"

	"team_chat_server/internal/config"
	"team_chat_server/internal/handler"
	"team_chat_server/internal/infrastructure/logger"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/infrastructure/middleware"
	"team_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init 创建 Gin 引擎并注册中间件与路由
// 配置顺序：日志与恢复、CORS、安全响应头、请求指标、健康检查、业务路由
func Init(cfg *config.Config, handlers *handler.Handlers, m *metrics.Metrics) *gin.Engine {
	// 不使用 gin.Default() 以便完全控制中间件
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 终止 SSL 时 Redirect 保持关闭
	engine.Use(middleware.Secure(&cfg.TLSConfig, cfg.Mode == "dev"))

	if cfg.MetricsConfig.Enabled && m != nil {
		engine.Use(middleware.Metrics(m))
		engine.GET(cfg.MetricsConfig.Path, gin.WrapH(promhttp.Handler()))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.Version})
	})

	router.NewRouter(handlers).RegisterRoutes(engine)
	return engine
}
