package redis

import (
	"context"
	"strconv"
	"time"

	"team_chat_server/internal/config"

	"github.com/redis/go-redis/v9"
)

// Init 按配置创建 Redis 客户端并确认可连通
func Init(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.Db,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.WorkerNum,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisCache(client, cfg.WorkerNum, cfg.TaskBuffer), nil
}
