// Package redis 定义快速存储（计数缓存）接口及其实现
// Service 层依赖接口而非具体 Redis 实现，所有值都可以从数据库重建
package redis

import (
	"context"
)

// CounterStore 未读计数缓存接口
// 值均为十进制整数字符串，键不存在不视为错误
type CounterStore interface {
	// Incr 原子加一，返回新值
	Incr(ctx context.Context, key string) (int64, error)
	// IncrBy 原子加 delta，返回新值
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// Decr 原子减一，返回新值
	Decr(ctx context.Context, key string) (int64, error)
	// GetInt 读取整数值，found=false 表示未命中
	GetInt(ctx context.Context, key string) (value int64, found bool, err error)
	// SetInt 覆盖写入
	SetInt(ctx context.Context, key string, value int64) error
	// SetMax 仅当新值更大（或键不存在）时写入，返回写入后的值
	SetMax(ctx context.Context, key string, value int64) (int64, error)
	// Delete 删除键，不存在的键忽略
	Delete(ctx context.Context, keys ...string) error
	// MGetInt 批量读取，未命中的键不出现在结果中
	MGetInt(ctx context.Context, keys ...string) (map[string]int64, error)
	// DeleteByPattern 删除匹配 glob 模式的所有键
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AsyncCounterStore 附带异步任务提交能力
// 用于不影响正确性的后台写入，如在线状态落库
type AsyncCounterStore interface {
	CounterStore
	// SubmitTask 提交异步任务，队列满时同步执行
	SubmitTask(action func())
}
