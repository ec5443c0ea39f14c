package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"team_chat_server/internal/handler"
	"team_chat_server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(handler.NewHandlers(&service.Services{}, nil)).RegisterRoutes(engine)

	got := map[string]bool{}
	for _, r := range engine.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/ws",
		"GET /api/v4/websocket",
		"GET /api/v1/unreads",
		"POST /api/v1/unreads/read_all",
		"POST /api/v1/channels/:channel_id/read",
		"POST /api/v1/channels/:channel_id/posts",
		"PUT /api/v1/posts/:post_id",
		"DELETE /api/v1/posts/:post_id",
		"POST /api/v1/posts/:post_id/pin",
		"POST /api/v1/posts/:post_id/reactions",
		"DELETE /api/v1/posts/:post_id/reactions",
		"POST /api/v1/channels",
		"POST /api/v1/channels/direct",
		"PUT /api/v1/channels/:channel_id",
		"DELETE /api/v1/channels/:channel_id",
		"POST /api/v1/channels/:channel_id/members",
		"DELETE /api/v1/channels/:channel_id/members/:user_id",
		"GET /api/v1/users/me",
		"PUT /api/v1/users/me",
		"PUT /api/v1/users/me/status",
		"GET /api/v1/admin/config/:category",
		"PATCH /api/v1/admin/config/:category",
	} {
		assert.True(t, got[want], want)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(handler.NewHandlers(&service.Services{}, nil)).RegisterRoutes(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unreads", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
