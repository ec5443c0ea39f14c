// Package job 后台定时任务
package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const syncTimeout = 30 * time.Second

// PresenceSyncer 由 user service 实现
type PresenceSyncer interface {
	SyncPresence(ctx context.Context) (int, error)
}

// PresenceSyncJob 按 Hub 修正 users.presence
// 进程崩溃或异步落库失败后，数据库里会残留与实际连接不符的状态
type PresenceSyncJob struct {
	syncer PresenceSyncer
	logger *zap.Logger
}

// NewPresenceSyncJob creates a new PresenceSyncJob instance
func NewPresenceSyncJob(syncer PresenceSyncer, logger *zap.Logger) *PresenceSyncJob {
	if logger == nil {
		logger = zap.L()
	}
	return &PresenceSyncJob{syncer: syncer, logger: logger}
}

// Run 实现 cron.Job
func (j *PresenceSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	start := time.Now()
	fixed, err := j.syncer.SyncPresence(ctx)
	if err != nil {
		j.logger.Error("presence sync failed", zap.Int("fixed", fixed), zap.Error(err))
		return
	}
	if fixed > 0 {
		j.logger.Info("presence sync completed",
			zap.Int("fixed", fixed),
			zap.Duration("elapsed", time.Since(start)))
		return
	}
	j.logger.Debug("presence already in sync")
}

// Scheduler 包装 cron，表达式为空时不启动任何任务
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler 注册任务，SkipIfStillRunning 避免慢任务叠加
func NewScheduler(spec string, job cron.Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.L()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if spec != "" {
		if _, err := c.AddJob(spec, job); err != nil {
			return nil, err
		}
	}
	return &Scheduler{c: c}, nil
}

// Start 非阻塞
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop 等待正在执行的任务结束或 ctx 超时
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries 已注册的任务数
func (s *Scheduler) Entries() int {
	return len(s.c.Entries())
}

// cronLogger 把 cron 的日志接口转到 zap
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
