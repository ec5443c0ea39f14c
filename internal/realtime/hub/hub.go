// Package hub 维护进程内全部在线连接、订阅索引与在线状态，并按 Target 路由信封
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"team_chat_server/internal/infrastructure/metrics"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/pkg/constants"
	"team_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type sessionMeta struct {
	userID      uuid.UUID
	username    string
	out         *outbound
	channels    map[uuid.UUID]struct{}
	teams       map[uuid.UUID]struct{}
	connectedAt time.Time
}

// Options Hub 构造参数
type Options struct {
	MaxSessionsPerUser int // <=0 不限制
	QueueSize          int
	Metrics            *metrics.Metrics
}

// Hub 连接中心
// 所有索引由一把读写锁保护，锁内不做任何 I/O
type Hub struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]map[string]*outbound
	meta        map[string]*sessionMeta
	channelSubs map[uuid.UUID]map[string]struct{}
	teamSubs    map[uuid.UUID]map[string]struct{}
	presence    map[uuid.UUID]model.Presence

	maxPerUser int
	queueSize  int
	metrics    *metrics.Metrics
}

// New 创建 Hub
func New(opts Options) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = constants.CHANNEL_SIZE
	}
	return &Hub{
		sessions:    make(map[uuid.UUID]map[string]*outbound),
		meta:        make(map[string]*sessionMeta),
		channelSubs: make(map[uuid.UUID]map[string]struct{}),
		teamSubs:    make(map[uuid.UUID]map[string]struct{}),
		presence:    make(map[uuid.UUID]model.Presence),
		maxPerUser:  opts.MaxSessionsPerUser,
		queueSize:   opts.QueueSize,
		metrics:     opts.Metrics,
	}
}

// Connection Connect 的结果
type Connection struct {
	SessionID string
	Outbound  <-chan []byte
	// FirstSession 该用户此前没有任何连接，调用方需要广播上线
	FirstSession bool
	// Reason Outbound 关闭后返回关闭原因
	Reason func() CloseReason
}

// Connect 注册新连接
// 超过单用户连接上限时返回 errorx.ErrQuotaExceeded
func (h *Hub) Connect(userID uuid.UUID, username string) (Connection, error) {
	h.mu.Lock()
	userSessions := h.sessions[userID]
	if h.maxPerUser > 0 && len(userSessions) >= h.maxPerUser {
		h.mu.Unlock()
		h.metrics.RecordConnect(metrics.ConnectQuota)
		return Connection{}, errorx.ErrQuotaExceeded
	}

	sid := uuid.NewString()
	out := newOutbound(h.queueSize)
	first := len(userSessions) == 0
	if userSessions == nil {
		userSessions = make(map[string]*outbound)
		h.sessions[userID] = userSessions
	}
	userSessions[sid] = out
	h.meta[sid] = &sessionMeta{
		userID:      userID,
		username:    username,
		out:         out,
		channels:    make(map[uuid.UUID]struct{}),
		teams:       make(map[uuid.UUID]struct{}),
		connectedAt: time.Now(),
	}
	if first {
		h.presence[userID] = model.PresenceOnline
	}
	sessions, users := len(h.meta), len(h.sessions)
	h.mu.Unlock()

	h.metrics.RecordConnect(metrics.ConnectOK)
	h.metrics.SetHubSizes(sessions, users)
	zap.L().Debug("hub connect",
		zap.String("session_id", sid),
		zap.String("user_id", userID.String()),
		zap.Bool("first", first))
	return Connection{SessionID: sid, Outbound: out.ch, FirstSession: first, Reason: out.closeReason}, nil
}

// DisconnectResult Disconnect 的结果
type DisconnectResult struct {
	UserID      uuid.UUID
	Found       bool
	WentOffline bool
}

// Disconnect 移除连接及其全部订阅，可重复调用
// 用户最后一个连接断开时在线状态置为 offline，由调用方广播
func (h *Hub) Disconnect(sessionID string) DisconnectResult {
	h.mu.Lock()
	m, ok := h.meta[sessionID]
	if !ok {
		h.mu.Unlock()
		return DisconnectResult{}
	}
	delete(h.meta, sessionID)
	for c := range m.channels {
		removeFromIndex(h.channelSubs, c, sessionID)
	}
	for t := range m.teams {
		removeFromIndex(h.teamSubs, t, sessionID)
	}
	wentOffline := false
	if userSessions := h.sessions[m.userID]; userSessions != nil {
		delete(userSessions, sessionID)
		if len(userSessions) == 0 {
			delete(h.sessions, m.userID)
			delete(h.presence, m.userID)
			wentOffline = true
		}
	}
	sessions, users := len(h.meta), len(h.sessions)
	h.mu.Unlock()

	m.out.close(CloseDisconnected)
	h.metrics.SetHubSizes(sessions, users)
	zap.L().Debug("hub disconnect",
		zap.String("session_id", sessionID),
		zap.String("user_id", m.userID.String()),
		zap.Bool("went_offline", wentOffline),
		zap.Duration("lifetime", time.Since(m.connectedAt)))
	return DisconnectResult{UserID: m.userID, Found: true, WentOffline: wentOffline}
}

func removeFromIndex(index map[uuid.UUID]map[string]struct{}, key uuid.UUID, sessionID string) {
	set := index[key]
	if set == nil {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(index, key)
	}
}

func addToIndex(index map[uuid.UUID]map[string]struct{}, key uuid.UUID, sessionID string) {
	set := index[key]
	if set == nil {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[sessionID] = struct{}{}
}

// SubscribeChannel 幂等，连接不存在时返回 false
func (h *Hub) SubscribeChannel(sessionID string, channelID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[sessionID]
	if !ok {
		return false
	}
	m.channels[channelID] = struct{}{}
	addToIndex(h.channelSubs, channelID, sessionID)
	return true
}

// UnsubscribeChannel 幂等
func (h *Hub) UnsubscribeChannel(sessionID string, channelID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[sessionID]
	if !ok {
		return false
	}
	delete(m.channels, channelID)
	removeFromIndex(h.channelSubs, channelID, sessionID)
	return true
}

func (h *Hub) SubscribeTeam(sessionID string, teamID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[sessionID]
	if !ok {
		return false
	}
	m.teams[teamID] = struct{}{}
	addToIndex(h.teamSubs, teamID, sessionID)
	return true
}

func (h *Hub) UnsubscribeTeam(sessionID string, teamID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[sessionID]
	if !ok {
		return false
	}
	delete(m.teams, teamID)
	removeFromIndex(h.teamSubs, teamID, sessionID)
	return true
}

// SubscribeUserChannel 为用户的全部连接订阅频道，返回受影响的连接数
// 成员加入频道时使用
func (h *Hub) SubscribeUserChannel(userID, channelID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sid := range h.sessions[userID] {
		if m, ok := h.meta[sid]; ok {
			m.channels[channelID] = struct{}{}
			addToIndex(h.channelSubs, channelID, sid)
			n++
		}
	}
	return n
}

// UnsubscribeUserChannel 取消用户全部连接对频道的订阅
func (h *Hub) UnsubscribeUserChannel(userID, channelID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sid := range h.sessions[userID] {
		if m, ok := h.meta[sid]; ok {
			delete(m.channels, channelID)
			removeFromIndex(h.channelSubs, channelID, sid)
			n++
		}
	}
	return n
}

// Broadcast 按 Target 投递信封，返回成功入队的连接数
// 信封只序列化一次；锁内只复制接收者列表，入队在锁外进行且不阻塞
// 队列已满的连接会被关闭发送端，由其 writer 退出后完成清理
func (h *Hub) Broadcast(env event.Envelope) int {
	msg, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("marshal envelope failed",
			zap.String("event", env.Event.String()),
			zap.Error(err))
		return 0
	}

	h.mu.RLock()
	recipients := h.resolveLocked(env.Target)
	h.mu.RUnlock()

	delivered := 0
	for _, r := range recipients {
		switch r.out.trySend(msg) {
		case enqueued:
			delivered++
		case queueFull:
			h.evict(r.sessionID, r.out, env.Event)
		}
	}
	h.metrics.RecordBroadcast(delivered)
	return delivered
}

// Deliver 投递给单个连接
func (h *Hub) Deliver(sessionID string, env event.Envelope) bool {
	env.Target = event.ToSession(sessionID)
	return h.Broadcast(env) == 1
}

type recipient struct {
	sessionID string
	out       *outbound
}

func (h *Hub) resolveLocked(t event.Target) []recipient {
	var out []recipient
	appendSet := func(set map[string]struct{}) {
		for sid := range set {
			m, ok := h.meta[sid]
			if !ok {
				continue
			}
			if t.Exclude != uuid.Nil && m.userID == t.Exclude {
				continue
			}
			out = append(out, recipient{sessionID: sid, out: m.out})
		}
	}

	switch t.Kind {
	case event.TargetChannel:
		appendSet(h.channelSubs[t.ID])
	case event.TargetTeam:
		appendSet(h.teamSubs[t.ID])
	case event.TargetUser:
		for sid, o := range h.sessions[t.ID] {
			out = append(out, recipient{sessionID: sid, out: o})
		}
	case event.TargetAll:
		out = make([]recipient, 0, len(h.meta))
		for sid, m := range h.meta {
			if t.Exclude != uuid.Nil && m.userID == t.Exclude {
				continue
			}
			out = append(out, recipient{sessionID: sid, out: m.out})
		}
	case event.TargetSession:
		if m, ok := h.meta[t.SessionID]; ok {
			out = append(out, recipient{sessionID: t.SessionID, out: m.out})
		}
	}
	return out
}

func (h *Hub) evict(sessionID string, out *outbound, name event.Name) {
	if !out.close(CloseEvicted) {
		return
	}
	h.metrics.RecordEviction()
	zap.L().Warn("slow consumer evicted",
		zap.String("session_id", sessionID),
		zap.String("event", name.String()))
}

// SetPresence 更新内存中的在线状态，调用方负责持久化与广播
// 在线状态必须与连接数一致：无连接时只能是 offline，有连接时不能是 offline
func (h *Hub) SetPresence(userID uuid.UUID, status model.Presence) bool {
	if !status.Valid() {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	hasSessions := len(h.sessions[userID]) > 0
	if status == model.PresenceOffline {
		return !hasSessions
	}
	if !hasSessions {
		return false
	}
	h.presence[userID] = status
	return true
}

// Presence 没有连接的用户为 offline
func (h *Hub) Presence(userID uuid.UUID) model.Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.presence[userID]; ok {
		return p
	}
	return model.PresenceOffline
}

// OnlineUsers 在线用户及其状态的快照
func (h *Hub) OnlineUsers() map[uuid.UUID]model.Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[uuid.UUID]model.Presence, len(h.presence))
	for u, p := range h.presence {
		out[u] = p
	}
	return out
}

// SessionCount 当前连接总数
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meta)
}

// UserSessionCount 某个用户的连接数
func (h *Hub) UserSessionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// IsSubscribed 连接是否订阅了频道
func (h *Hub) IsSubscribed(sessionID string, channelID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.meta[sessionID]
	if !ok {
		return false
	}
	_, sub := m.channels[channelID]
	return sub
}

// SetMaxSessionsPerUser 在线调整单用户连接上限，只影响之后的 Connect
func (h *Hub) SetMaxSessionsPerUser(n int) {
	h.mu.Lock()
	h.maxPerUser = n
	h.mu.Unlock()
	zap.L().Info("hub session quota updated", zap.Int("max_sessions_per_user", n))
}

func (h *Hub) MaxSessionsPerUser() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxPerUser
}

// CloseAll 进程退出时关闭全部发送队列，各连接随之进入清理流程
func (h *Hub) CloseAll() {
	h.mu.RLock()
	outs := make([]*outbound, 0, len(h.meta))
	for _, m := range h.meta {
		outs = append(outs, m.out)
	}
	h.mu.RUnlock()
	for _, o := range outs {
		o.close(CloseShutdown)
	}
}
