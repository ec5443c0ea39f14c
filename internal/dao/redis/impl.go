package redis

import (
	"context"
	"errors"
	"strconv"

	"team_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setMaxScript 原子地执行 "新值更大才写入"
// 多个进程同时写 last_seq 时保证只前进不后退
var setMaxScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local val = tonumber(ARGV[1])
if cur == false or tonumber(cur) < val then
  redis.call('SET', KEYS[1], ARGV[1])
  return val
end
return tonumber(cur)
`)

// RedisCache CounterStore 的 Redis 实现，同时持有异步任务 worker pool
type RedisCache struct {
	client       *redis.Client
	taskChan     chan func()
	workerNum    int
	taskChanSize int
}

// NewRedisCache 创建 Redis 缓存实例并启动 worker
func NewRedisCache(client *redis.Client, workerNum, taskChanSize int) *RedisCache {
	rc := &RedisCache{
		client:       client,
		taskChan:     make(chan func(), taskChanSize),
		workerNum:    workerNum,
		taskChanSize: taskChanSize,
	}
	for i := 0; i < workerNum; i++ {
		go rc.startWorker()
	}
	zap.L().Info("Redis cache workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return rc
}

func (r *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "redis incr key %s", key)
	}
	return n, nil
}

func (r *RedisCache) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "redis incrby key %s", key)
	}
	return n, nil
}

func (r *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "redis decr key %s", key)
	}
	return n, nil
}

// GetInt redis.Nil 视为未命中
func (r *RedisCache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return n, true, nil
}

func (r *RedisCache) SetInt(ctx context.Context, key string, value int64) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

func (r *RedisCache) SetMax(ctx context.Context, key string, value int64) (int64, error) {
	n, err := setMaxScript.Run(ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "redis setmax key %s", key)
	}
	return n, nil
}

// Delete 使用 UNLINK 在后台释放内存
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink %d keys", len(keys))
	}
	return nil
}

// MGetInt 非整数值按未命中处理并记录警告
func (r *RedisCache) MGetInt(ctx context.Context, keys ...string) (map[string]int64, error) {
	out := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis mget %d keys", len(keys))
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			zap.L().Warn("non-integer counter value", zap.String("key", keys[i]), zap.String("value", s))
			continue
		}
		out[keys[i]] = n
	}
	return out, nil
}

// DeleteByPattern SCAN + UNLINK 分批删除，避免阻塞 Redis
func (r *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		var keys []string
		var err error
		keys, cursor, err = r.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return errorx.Wrapf(err, errorx.CodeCacheError, "redis scan pattern %s", pattern)
		}
		if len(keys) > 0 {
			if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
				return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink keys with pattern %s", pattern)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

// Ping 健康检查
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errorx.Wrap(err, errorx.CodeCacheError, "redis ping")
	}
	return nil
}

var _ AsyncCounterStore = (*RedisCache)(nil)
