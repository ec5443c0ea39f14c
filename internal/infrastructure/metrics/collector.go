package metrics

import (
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// DBStatsCollector 周期性采集连接池状态
type DBStatsCollector struct {
	db       *sql.DB
	metrics  *Metrics
	interval time.Duration
	done     chan struct{}
}

func NewDBStatsCollector(db *sql.DB, m *Metrics, interval time.Duration) *DBStatsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DBStatsCollector{db: db, metrics: m, interval: interval, done: make(chan struct{})}
}

// Start 立即采集一次，之后按间隔采集
func (c *DBStatsCollector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.done:
				return
			}
		}
	}()
}

func (c *DBStatsCollector) Stop() {
	close(c.done)
}

func (c *DBStatsCollector) collect() {
	if c.metrics == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("panic in db stats collection", zap.Any("panic", r))
		}
	}()
	stats := c.db.Stats()
	c.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	c.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
	c.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}
