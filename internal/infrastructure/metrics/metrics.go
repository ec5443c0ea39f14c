// Package metrics 定义 Prometheus 指标
// 所有记录方法都允许 nil 接收者，未启用指标时组件无需判空
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "team_chat"

// Metrics 应用指标集合
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Hub
	SessionsActive  prometheus.Gauge
	UsersOnline     prometheus.Gauge
	ConnectsTotal   *prometheus.CounterVec
	EvictionsTotal  prometheus.Counter
	BroadcastFanout prometheus.Histogram

	// Dispatcher
	EventsTotal       *prometheus.CounterVec
	ExportErrorsTotal prometheus.Counter

	// Unread tracker
	UnreadCacheHits   prometheus.Counter
	UnreadCacheMisses prometheus.Counter
	UnreadSelfHeals   *prometheus.CounterVec

	// 数据库连接池
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge

	logger *zap.Logger
}

// New 注册到默认 registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, nil)
}

// NewWithRegistry 注册到指定 registry，测试中每个用例使用独立 registry
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)
	if logger == nil {
		logger = zap.L()
	}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "sessions_active",
			Help:      "Number of live WebSocket sessions",
		}),
		UsersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "users_online",
			Help:      "Number of users with at least one live session",
		}),
		ConnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "connects_total",
				Help:      "Session connect attempts by result",
			},
			[]string{"result"},
		),
		EvictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "evictions_total",
			Help:      "Sessions dropped because their outbound queue was full",
		}),
		BroadcastFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcast_fanout",
			Help:      "Number of sessions an envelope was delivered to",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatcher",
				Name:      "events_total",
				Help:      "Dispatched envelopes by event name",
			},
			[]string{"event"},
		),
		ExportErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "export_errors_total",
			Help:      "Envelopes that failed to be mirrored to the event exporter",
		}),

		UnreadCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unread",
			Name:      "cache_hits_total",
			Help:      "Unread counter reads served from the fast store",
		}),
		UnreadCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unread",
			Name:      "cache_misses_total",
			Help:      "Unread counter reads recomputed from the durable store",
		}),
		UnreadSelfHeals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unread",
				Name:      "self_heals_total",
				Help:      "Cache entries deleted or rewritten to recover from inconsistency",
			},
			[]string{"reason"},
		),

		DBConnectionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Current number of open database connections",
		}),
		DBConnectionsInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Current number of in-use database connections",
		}),
		DBConnectionsIdle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Current number of idle database connections",
		}),

		logger: logger,
	}
}

// safeExecute 指标操作不允许影响业务
func (m *Metrics) safeExecute(operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in metrics operation",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
