package redis

import (
	"go.uber.org/zap"
)

// startWorker 单个 worker 消费循环，panic 后自动重启
func (r *RedisCache) startWorker() {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("Redis worker panic", zap.Any("recover", rec))
			go r.startWorker()
		}
	}()

	for task := range r.taskChan {
		if task != nil {
			task()
		}
	}
}

// SubmitTask 提交异步任务，队列满时降级为同步执行
func (r *RedisCache) SubmitTask(action func()) {
	select {
	case r.taskChan <- action:
	default:
		zap.L().Warn("Redis task channel full, executing synchronously")
		action()
	}
}

// Close 停止接收任务并关闭客户端，已入队的任务由 worker 继续执行完
func (r *RedisCache) Close() error {
	close(r.taskChan)
	return r.client.Close()
}
