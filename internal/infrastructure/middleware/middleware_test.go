package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"team_chat_server/internal/config"
	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/api/v1/things/:id", func(c *gin.Context) {
		uid, _ := UserID(c)
		c.String(http.StatusOK, uid.String())
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	jwt.Init("middleware-secret", 10)
	r := newEngine(JWTAuth())
	uid := uuid.New()
	tok, err := jwt.GenerateAccessToken(uid, "alice", "member")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"ok", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/things/1", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, uid.String(), w.Body.String())
			}
		})
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	r := newEngine(Metrics(m))

	for _, path := range []string{"/api/v1/things/1", "/api/v1/things/2", "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/things/:id", "2xx")))
}

func TestSecureRedirectsToHTTPS(t *testing.T) {
	r := newEngine(Secure(&config.TLSConfig{Redirect: true, Host: "example.com", Port: 8443}, false))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/things/1", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com:8443/api/v1/things/1", w.Header().Get("Location"))
}

func TestSecureHeadersWithoutRedirect(t *testing.T) {
	r := newEngine(Secure(&config.TLSConfig{}, false))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/things/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
