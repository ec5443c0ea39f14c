package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"
	"team_chat_server/internal/realtime/hub"
	"team_chat_server/internal/service/post"
	"team_chat_server/pkg/constants"
	"team_chat_server/pkg/errorx"
	"team_chat_server/pkg/util/jwt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("team_chat_server/gateway/websocket")

// State 连接状态
type State int32

const (
	StateNew State = iota
	StateSubscribing
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const persistTimeout = 5 * time.Second

// Session 一条 WebSocket 连接
// Hub 持有发送端，Session 持有接收端；接收端关闭即进入清理
type Session struct {
	m       *Manager
	conn    *websocket.Conn
	dialect dialect

	mu    sync.Mutex
	state State

	id       string
	userID   uuid.UUID
	username string
	out      <-chan []byte
	reason   func() hub.CloseReason

	ctx         context.Context
	cancel      context.CancelFunc
	parseErrors int
	closeOnce   sync.Once
}

func newSession(m *Manager, conn *websocket.Conn, d dialect) *Session {
	return &Session{m: m, conn: conn, dialect: d, state: StateNew}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) logger() *zap.Logger {
	return zap.L().With(
		zap.String("session_id", s.id),
		zap.String("user_id", s.userID.String()),
		zap.String("dialect", s.dialect.name()))
}

func (s *Session) run(parent context.Context, token string) {
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(parent))
	defer s.cancel()

	claims, challenge, err := s.authenticate(token)
	if err != nil {
		zap.L().Info("websocket auth failed", zap.String("dialect", s.dialect.name()), zap.Error(err))
		s.closeWith(constants.CLOSE_UNAUTHORIZED, "unauthorized")
		return
	}
	s.userID, _ = claims.UID()
	s.username = claims.Username

	conn, err := s.m.deps.Hub.Connect(s.userID, s.username)
	if err != nil {
		if errors.Is(err, errorx.ErrQuotaExceeded) {
			s.logger().Info("websocket session quota exceeded")
			s.closeWith(constants.CLOSE_QUOTA_EXCEEDED, "too many sessions")
			return
		}
		s.logger().Error("hub connect failed", zap.Error(err))
		s.closeWith(constants.CLOSE_SERVER_ERROR, "server error")
		return
	}
	s.id = conn.SessionID
	s.out = conn.Outbound
	s.reason = conn.Reason
	s.setState(StateSubscribing)

	if challenge != nil {
		if b := s.dialect.authOK(challenge); b != nil {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.m.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.teardown()
				return
			}
		}
	}

	if err := s.bootstrap(); err != nil {
		s.logger().Error("websocket bootstrap failed", zap.Error(err))
		s.closeWith(constants.CLOSE_SERVER_ERROR, "server error")
		s.teardown()
		return
	}
	s.m.deps.Hub.Deliver(s.id, event.New(event.Hello, event.ToSession(s.id), event.HelloData{
		ServerVersion: s.m.opts.ServerVersion,
		ConnectionID:  s.id,
		UserID:        s.userID,
	}))
	if conn.FirstSession {
		s.m.deps.Events.UserPresence(s.ctx, s.userID, model.PresenceOnline)
		s.persistPresence(model.PresenceOnline)
	}
	s.setState(StateActive)
	s.logger().Info("websocket session active")

	go s.writePump()
	s.readPump()
	s.teardown()
}

// authenticate 未携带 token 时等待 authentication_challenge 帧
func (s *Session) authenticate(token string) (*jwt.Claims, *Command, error) {
	if token != "" {
		claims, err := jwt.ParseAccessToken(token)
		return claims, nil, err
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(s.m.opts.AuthTimeout))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, nil, fmt.Errorf("wait authentication challenge: %w", err)
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, nil, fmt.Errorf("decode authentication challenge: %w", err)
	}
	if cmd.Name() != cmdAuthChallenge {
		return nil, nil, fmt.Errorf("expected %s, got %q", cmdAuthChallenge, cmd.Name())
	}
	var p authPayload
	if err := cmd.decodeData(&p); err != nil {
		return nil, nil, err
	}
	claims, err := jwt.ParseAccessToken(p.Token)
	if err != nil {
		return nil, nil, err
	}
	return claims, &cmd, nil
}

// bootstrap 订阅用户所在的团队与频道
func (s *Session) bootstrap() error {
	ctx, span := tracer.Start(s.ctx, "Session.Bootstrap",
		trace.WithAttributes(
			attribute.String("user_id", s.userID.String()),
			attribute.String("session_id", s.id)))
	defer span.End()

	ms, err := s.m.deps.Users.LoadMemberships(ctx, s.userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load memberships")
		return err
	}
	for _, t := range ms.TeamIDs {
		s.m.deps.Hub.SubscribeTeam(s.id, t)
	}
	for _, c := range ms.ChannelIDs {
		s.m.deps.Hub.SubscribeChannel(s.id, c)
	}
	span.SetAttributes(
		attribute.Int("teams", len(ms.TeamIDs)),
		attribute.Int("channels", len(ms.ChannelIDs)))
	return nil
}

// teardown 可重复调用，只执行一次
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		res := s.m.deps.Hub.Disconnect(s.id)
		if res.WentOffline {
			s.m.deps.Events.UserPresence(s.ctx, s.userID, model.PresenceOffline)
			s.persistPresence(model.PresenceOffline)
		}
		_ = s.conn.Close()
		s.setState(StateClosed)
		s.logger().Info("websocket session closed", zap.Bool("went_offline", res.WentOffline))
	})
}

// persistPresence 尽力写库，失败由定时任务兜底
func (s *Session) persistPresence(status model.Presence) {
	ctx, cancel := context.WithTimeout(s.ctx, persistTimeout)
	defer cancel()
	if err := s.m.deps.Users.PersistPresence(ctx, s.userID, status); err != nil {
		s.logger().Warn("persist presence failed", zap.String("status", string(status)), zap.Error(err))
	}
}

// closeWith 发送关闭帧后关闭底层连接，WriteControl 可与 writer 并发
func (s *Session) closeWith(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.m.opts.WriteWait))
	_ = s.conn.Close()
}

// writePump 出站队列关闭（断开或被驱逐）时退出
func (s *Session) writePump() {
	ticker := time.NewTicker(s.m.opts.pingInterval())
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.out:
			if !ok {
				if s.reason() == hub.CloseEvicted {
					s.logger().Info("closing evicted session")
					s.closeWith(constants.CLOSE_POLICY_VIOLATION, "slow consumer")
					return
				}
				s.closeWith(constants.CLOSE_NORMAL, "")
				return
			}
			frame, err := s.dialect.encode(msg)
			if err != nil {
				s.logger().Error("encode outbound frame failed", zap.Error(err))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.m.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger().Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.m.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) extendReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.m.opts.PongWait))
}

func (s *Session) readPump() {
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger().Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		s.extendReadDeadline()

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Name() == "" {
			s.parseErrors++
			s.deliver(s.dialect.fail(s.id, nil, errorx.CodeInvalidParam, "malformed frame"))
			if s.parseErrors >= s.m.opts.MaxParseErrors {
				s.logger().Warn("too many malformed frames", zap.Int("count", s.parseErrors))
				s.closeWith(constants.CLOSE_POLICY_VIOLATION, "too many malformed frames")
				return
			}
			continue
		}
		s.parseErrors = 0
		s.handle(&cmd)
	}
}

func (s *Session) deliver(env event.Envelope) {
	s.m.deps.Hub.Deliver(s.id, env)
}

func (s *Session) replyErr(cmd *Command, err error) {
	s.deliver(s.dialect.fail(s.id, cmd, errorx.GetCode(err), errorx.Message(err)))
}

func (s *Session) handle(cmd *Command) {
	switch cmd.Name() {
	case cmdSendMessage:
		s.handleSendMessage(cmd)
	case cmdSubscribeChannel:
		s.handleSubscribe(cmd, true)
	case cmdUnsubscribeChannel:
		s.handleSubscribe(cmd, false)
	case cmdTyping:
		s.handleTyping(cmd, false)
	case cmdTypingStop:
		s.handleTyping(cmd, true)
	case cmdPresence:
		s.handlePresence(cmd)
	case cmdPing:
		s.deliver(s.dialect.reply(s.id, cmd, event.Pong, nil))
	case cmdAuthChallenge:
		s.deliver(s.dialect.reply(s.id, cmd, event.ActionResult, nil))
	default:
		s.deliver(s.dialect.fail(s.id, cmd, errorx.CodeInvalidParam, "unknown command: "+cmd.Name()))
	}
}

func (s *Session) handleSendMessage(cmd *Command) {
	var p sendMessagePayload
	if err := cmd.decodeData(&p); err != nil {
		s.replyErr(cmd, errorx.ErrInvalidParam)
		return
	}
	if err := s.m.validate.Struct(&p); err != nil {
		s.replyErr(cmd, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid send_message payload"))
		return
	}
	channelID, ok := channelOf(cmd, p.ChannelID)
	if !ok {
		s.replyErr(cmd, errorx.New(errorx.CodeInvalidParam, "channel_id is required"))
		return
	}
	clientMsgID := p.ClientMsgID
	if clientMsgID == "" {
		clientMsgID = cmd.ClientMsgID
	}
	created, err := s.m.deps.Posts.CreatePost(s.ctx, s.userID, channelID, post.CreateInput{
		Message:     p.Message,
		RootPostID:  p.RootPostID,
		Props:       p.Props,
		FileIDs:     p.FileIDs,
		ClientMsgID: clientMsgID,
	})
	if err != nil {
		s.logger().Debug("send_message rejected", zap.String("channel_id", channelID.String()), zap.Error(err))
		s.replyErr(cmd, err)
		return
	}
	s.deliver(s.dialect.reply(s.id, cmd, event.ActionResult, created))
}

func (s *Session) handleSubscribe(cmd *Command, subscribe bool) {
	var p channelPayload
	if err := cmd.decodeData(&p); err != nil {
		s.replyErr(cmd, errorx.ErrInvalidParam)
		return
	}
	channelID, ok := channelOf(cmd, p.ChannelID)
	if !ok {
		s.replyErr(cmd, errorx.New(errorx.CodeInvalidParam, "channel_id is required"))
		return
	}
	if !subscribe {
		s.m.deps.Hub.UnsubscribeChannel(s.id, channelID)
		s.deliver(s.dialect.reply(s.id, cmd, event.ChannelUnsubscribed, event.Subscription{ChannelID: channelID}))
		return
	}
	if err := s.m.deps.Channels.CheckAccess(s.ctx, s.userID, channelID); err != nil {
		s.replyErr(cmd, err)
		return
	}
	s.m.deps.Hub.SubscribeChannel(s.id, channelID)
	s.deliver(s.dialect.reply(s.id, cmd, event.ChannelSubscribed, event.Subscription{ChannelID: channelID}))
}

// handleTyping 只允许在已订阅的频道中发送，不落库
func (s *Session) handleTyping(cmd *Command, stop bool) {
	var p channelPayload
	if err := cmd.decodeData(&p); err != nil {
		s.replyErr(cmd, errorx.ErrInvalidParam)
		return
	}
	channelID, ok := channelOf(cmd, p.ChannelID)
	if !ok {
		s.replyErr(cmd, errorx.New(errorx.CodeInvalidParam, "channel_id is required"))
		return
	}
	if !s.m.deps.Hub.IsSubscribed(s.id, channelID) {
		s.replyErr(cmd, errorx.ErrNotMember)
		return
	}
	root := p.ThreadRoot
	if root == nil {
		root = p.ParentID
	}
	s.m.deps.Events.Typing(s.ctx, channelID, event.Typing{
		UserID:      s.userID,
		DisplayName: s.username,
		ThreadRoot:  root,
	}, stop)
}

func (s *Session) handlePresence(cmd *Command) {
	var p presencePayload
	if err := cmd.decodeData(&p); err != nil {
		s.replyErr(cmd, errorx.ErrInvalidParam)
		return
	}
	if err := s.m.validate.Struct(&p); err != nil {
		s.replyErr(cmd, errorx.New(errorx.CodeInvalidParam, "status must be one of online, away, dnd"))
		return
	}
	status := model.Presence(p.Status)
	if err := s.m.deps.Users.SetPresence(s.ctx, s.userID, status); err != nil {
		s.replyErr(cmd, err)
		return
	}
	s.deliver(s.dialect.reply(s.id, cmd, event.ActionResult, event.Presence{UserID: s.userID, Status: status}))
}
