package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"team_chat_server/internal/config"
	"team_chat_server/internal/dao/database"
	cache "team_chat_server/internal/dao/redis"
	"team_chat_server/internal/gateway/websocket"
	"team_chat_server/internal/handler"
	"team_chat_server/internal/https_server"
	"team_chat_server/internal/infrastructure/logger"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/infrastructure/mq"
	"team_chat_server/internal/infrastructure/telemetry"
	"team_chat_server/internal/job"
	"team_chat_server/internal/realtime/dispatcher"
	"team_chat_server/internal/realtime/hub"
	"team_chat_server/internal/service"
	"team_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	if conf.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	zap.L().Info("logger initialized", zap.String("mode", conf.Mode))

	// 3. 初始化 JWT
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)

	ctx := context.Background()

	// 4. 链路追踪
	shutdownTracing, err := telemetry.Init(ctx, &conf.TracingConfig, conf.AppName, conf.Version)
	if err != nil {
		zap.L().Fatal("init tracing failed", zap.Error(err))
	}

	// 5. 数据库
	repos, err := database.Init(&conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("init database failed", zap.Error(err))
	}

	// 6. 计数缓存
	var store cache.CounterStore
	var redisCache *cache.RedisCache
	if conf.RedisConfig.InMemory {
		store = cache.NewMemoryStore()
		zap.L().Warn("using in-process counter store, unread counters are not shared between instances")
	} else {
		redisCache, err = cache.Init(ctx, &conf.RedisConfig)
		if err != nil {
			zap.L().Fatal("init redis failed", zap.Error(err))
		}
		store = redisCache
	}

	// 7. 指标
	var m *metrics.Metrics
	var dbStats *metrics.DBStatsCollector
	if conf.MetricsConfig.Enabled {
		m = metrics.New()
		if sqlDB, err := repos.DB().DB(); err == nil {
			dbStats = metrics.NewDBStatsCollector(sqlDB, m, 15*time.Second)
			dbStats.Start()
		}
	}

	// 8. 实时层
	h := hub.New(hub.Options{
		MaxSessionsPerUser: conf.MaxSessionsPerUser,
		QueueSize:          conf.OutboundQueueSize,
		Metrics:            m,
	})
	dispatcherOpts := []dispatcher.Option{dispatcher.WithMetrics(m)}
	var exporter *mq.KafkaExporter
	if conf.KafkaConfig.Enabled {
		if err := mq.EnsureTopic(&conf.KafkaConfig, 3); err != nil {
			zap.L().Warn("ensure kafka topic failed", zap.String("topic", conf.EventTopic), zap.Error(err))
		}
		exporter = mq.NewKafkaExporter(&conf.KafkaConfig, func(err error) {
			m.RecordExportError()
			zap.L().Warn("event export failed", zap.Error(err))
		})
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithExporter(exporter))
	}
	d := dispatcher.New(h, dispatcherOpts...)

	// 9. Service 层
	svc := service.NewServices(repos, store, h, d, m)
	if err := svc.Admin.ApplyStored(ctx); err != nil {
		zap.L().Warn("apply stored config failed", zap.Error(err))
	}

	// 10. WebSocket 网关
	wsManager := websocket.NewManager(websocket.Deps{
		Hub:      h,
		Events:   d,
		Posts:    svc.Post,
		Users:    svc.User,
		Channels: svc.Channel,
	}, websocket.OptionsFromConfig(&conf.HubConfig, conf.Version))

	// 11. HTTP
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Warn("init validator translator failed", zap.Error(err))
	}
	engine := https_server.Init(conf, handler.NewHandlers(svc, wsManager), m)

	// 12. 定时任务
	var scheduler *job.Scheduler
	if conf.PresenceSyncSpec != "" {
		scheduler, err = job.NewScheduler(conf.PresenceSyncSpec, job.NewPresenceSyncJob(svc.User, zap.L()), zap.L())
		if err != nil {
			zap.L().Fatal("init presence sync job failed", zap.Error(err))
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		var err error
		if conf.TLSConfig.CertFile != "" && conf.TLSConfig.KeyFile != "" {
			err = srv.ListenAndServeTLS(conf.TLSConfig.CertFile, conf.TLSConfig.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 先停止接收新连接，再以 1000 关闭所有会话
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("http shutdown failed", zap.Error(err))
	}
	h.CloseAll()
	wsManager.Wait()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if dbStats != nil {
		dbStats.Stop()
	}
	if exporter != nil {
		if err := exporter.Close(); err != nil {
			zap.L().Error("close kafka exporter failed", zap.Error(err))
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			zap.L().Error("close redis failed", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zap.L().Error("shutdown tracing failed", zap.Error(err))
	}
	zap.L().Info("server stopped")
	_ = zap.L().Sync()
}
