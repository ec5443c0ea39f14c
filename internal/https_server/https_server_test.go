package https_server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"team_chat_server/internal/config"
	"team_chat_server/internal/handler"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestConfig(metricsEnabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.MetricsConfig.Enabled = metricsEnabled
	cfg.ApplyDefaults()
	return cfg
}

func TestHealthWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
	engine := Init(newTestConfig(false), handler.NewHandlers(&service.Services{}, nil), nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	engine := Init(newTestConfig(true), handler.NewHandlers(&service.Services{}, nil), m)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
