package redis

import (
	"context"
	"path"
	"sync"
)

// MemoryStore 进程内 CounterStore 实现
// Redis 未启用时使用；Fail 非空时所有操作返回该错误，用于模拟缓存故障
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
	Fail   error
}

// NewMemoryStore 创建空的内存计数存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrBy(ctx, key, 1)
}

func (m *MemoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	m.values[key] += delta
	return m.values[key], nil
}

func (m *MemoryStore) Decr(ctx context.Context, key string) (int64, error) {
	return m.IncrBy(ctx, key, -1)
}

func (m *MemoryStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, false, m.Fail
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) SetInt(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) SetMax(_ context.Context, key string, value int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	if cur, ok := m.values[key]; ok && cur >= value {
		return cur, nil
	}
	m.values[key] = value
	return value, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryStore) MGetInt(_ context.Context, keys ...string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// DeleteByPattern 支持与 Redis SCAN 相同的 glob 语法
func (m *MemoryStore) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for k := range m.values {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.values, k)
		}
	}
	return nil
}

// Flush 清空全部键
func (m *MemoryStore) Flush() {
	m.mu.Lock()
	m.values = make(map[string]int64)
	m.mu.Unlock()
}

// SetFail 线程安全地设置故障注入
func (m *MemoryStore) SetFail(err error) {
	m.mu.Lock()
	m.Fail = err
	m.mu.Unlock()
}

// Len 当前键数量
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// SubmitTask 内存模式下直接同步执行
func (m *MemoryStore) SubmitTask(action func()) {
	action()
}

var _ AsyncCounterStore = (*MemoryStore)(nil)
