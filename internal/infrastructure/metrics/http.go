package metrics

import (
	"time"
)

// RecordHTTPRequest 记录 HTTP 请求次数与耗时
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.safeExecute("RecordHTTPRequest", func() {
		m.HTTPRequestsTotal.WithLabelValues(method, endpoint, categorizeStatus(statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	})
}

func categorizeStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// ShouldSkipEndpoint 指标、健康检查与长连接升级不计入请求耗时
func ShouldSkipEndpoint(path string) bool {
	switch path {
	case "/metrics", "/health", "/api/v1/ws", "/api/v4/websocket":
		return true
	}
	return false
}
