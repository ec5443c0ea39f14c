// Package websocket 实时连接网关：升级、认证、订阅初始化、命令处理与出站队列写出
package websocket

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"team_chat_server/internal/config"
	"team_chat_server/pkg/constants"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const tokenSubprotocol = "access_token"

// Options 连接参数
type Options struct {
	AuthTimeout    time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	MaxParseErrors int
	AllowedOrigins []string
	ServerVersion  string
}

// OptionsFromConfig 配置中的时长以秒为单位
func OptionsFromConfig(cfg *config.HubConfig, version string) Options {
	return Options{
		AuthTimeout:    cfg.AuthTimeout * time.Second,
		WriteWait:      cfg.WriteWait * time.Second,
		PongWait:       cfg.PongWait * time.Second,
		MaxMessageSize: cfg.MaxMessageSize,
		MaxParseErrors: cfg.MaxParseErrors,
		AllowedOrigins: cfg.AllowedOrigins,
		ServerVersion:  version,
	}
}

func (o *Options) applyDefaults() {
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = constants.AUTH_TIMEOUT
	}
	if o.WriteWait <= 0 {
		o.WriteWait = constants.WRITE_WAIT
	}
	if o.PongWait <= 0 {
		o.PongWait = constants.PONG_WAIT
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = constants.MAX_MESSAGE_SIZE
	}
	if o.MaxParseErrors <= 0 {
		o.MaxParseErrors = constants.MAX_PARSE_ERRORS
	}
	if o.ServerVersion == "" {
		o.ServerVersion = constants.SERVER_VERSION
	}
}

func (o *Options) pingInterval() time.Duration {
	return o.PongWait * 9 / 10
}

// Manager 负责升级 HTTP 连接并为每个连接运行一个 Session
type Manager struct {
	deps     Deps
	opts     Options
	upgrader websocket.Upgrader
	validate *validator.Validate
	wg       sync.WaitGroup
}

// NewManager 创建连接管理器
func NewManager(deps Deps, opts Options) *Manager {
	opts.applyDefaults()
	m := &Manager{deps: deps, opts: opts, validate: validator.New()}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	if len(m.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range m.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeNative /api/v1/ws
func (m *Manager) ServeNative(w http.ResponseWriter, r *http.Request) {
	m.serve(w, r, &nativeDialect{})
}

// ServeCompat /api/v4/websocket
func (m *Manager) ServeCompat(w http.ResponseWriter, r *http.Request) {
	m.serve(w, r, &compatDialect{})
}

// serve 阻塞到连接结束
func (m *Manager) serve(w http.ResponseWriter, r *http.Request, d dialect) {
	token, subprotocol := tokenFromRequest(r)
	var header http.Header
	if subprotocol != "" {
		header = http.Header{"Sec-Websocket-Protocol": []string{subprotocol}}
	}
	conn, err := m.upgrader.Upgrade(w, r, header)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.String("dialect", d.name()), zap.Error(err))
		return
	}
	conn.SetReadLimit(m.opts.MaxMessageSize)

	m.wg.Add(1)
	defer m.wg.Done()
	newSession(m, conn, d).run(r.Context(), token)
}

// Wait 等待所有连接退出，进程关闭时在 Hub.CloseAll 之后调用
func (m *Manager) Wait() {
	m.wg.Wait()
}

// tokenFromRequest 依次检查 query、Authorization 头、子协议
// 子协议形式为 "access_token, <token>"，服务端回显 access_token
func tokenFromRequest(r *http.Request) (token, subprotocol string) {
	q := r.URL.Query()
	if t := q.Get("token"); t != "" {
		return t, ""
	}
	if t := q.Get("access_token"); t != "" {
		return t, ""
	}
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), ""
		}
	}
	protocols := websocket.Subprotocols(r)
	for i, p := range protocols {
		if p == tokenSubprotocol && i+1 < len(protocols) {
			return protocols[i+1], tokenSubprotocol
		}
	}
	return "", ""
}
