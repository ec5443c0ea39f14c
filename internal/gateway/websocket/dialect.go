package websocket

import (
	"encoding/json"

	"team_chat_server/internal/realtime/event"

	"github.com/google/uuid"
)

// dialect 同一套内部事件在不同端点上的线路形态
type dialect interface {
	name() string
	// reply 命令成功的回执，只投递给发起连接
	reply(sessionID string, cmd *Command, name event.Name, data any) event.Envelope
	// fail 命令失败，连接保持
	fail(sessionID string, cmd *Command, code int, msg string) event.Envelope
	// encode writer 发送前的转换，输入是 Hub 序列化好的原生信封
	encode(raw []byte) ([]byte, error)
	// authOK 挑战帧认证成功后的直接回复，nil 表示不回复
	authOK(cmd *Command) []byte
}

// nativeDialect 每个连接一个实例，seq 只在 writer 中递增
type nativeDialect struct {
	seq int64
}

func (*nativeDialect) name() string { return "native" }

func (*nativeDialect) reply(sessionID string, _ *Command, name event.Name, data any) event.Envelope {
	return event.NewAck(name, event.ToSession(sessionID), data)
}

func (*nativeDialect) fail(sessionID string, _ *Command, code int, msg string) event.Envelope {
	return event.NewError(event.ToSession(sessionID), code, msg)
}

// encode 为每一帧打上连接内单调递增的 seq，从 0 开始
func (d *nativeDialect) encode(raw []byte) ([]byte, error) {
	var w event.Wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	seq := d.seq
	w.Seq = &seq
	d.seq++
	return json.Marshal(w)
}

func (*nativeDialect) authOK(*Command) []byte { return nil }

// compatNames 兼容端点的事件改名，未列出的保持原名
var compatNames = map[event.Name]string{
	event.MessageCreated:      "posted",
	event.ThreadReplyCreated:  "posted",
	event.MessageUpdated:      "post_edited",
	event.MessageDeleted:      "post_deleted",
	event.UserTyping:          "typing",
	event.UserPresence:        "status_change",
	event.UnreadCountsUpdated: "channel_viewed",
}

func compatName(wire string) string {
	if n, ok := compatNames[event.ParseName(wire)]; ok {
		return n
	}
	return wire
}

type compatBroadcast struct {
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
}

type compatEvent struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Broadcast compatBroadcast `json:"broadcast"`
	Seq       int64           `json:"seq"`
}

type compatError struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

type compatReply struct {
	Status   string       `json:"status"`
	SeqReply int64        `json:"seq_reply"`
	Data     any          `json:"data,omitempty"`
	Error    *compatError `json:"error,omitempty"`
}

// compatDialect 每个连接一个实例，seq 只在 writer 中递增
type compatDialect struct {
	seq int64
}

func (*compatDialect) name() string { return "compat" }

func (*compatDialect) reply(sessionID string, cmd *Command, name event.Name, data any) event.Envelope {
	return event.NewAck(name, event.ToSession(sessionID), compatReply{Status: "OK", SeqReply: cmd.Seq, Data: data})
}

func (*compatDialect) fail(sessionID string, cmd *Command, code int, msg string) event.Envelope {
	var seq int64
	if cmd != nil {
		seq = cmd.Seq
	}
	return event.Envelope{
		Kind:   event.KindError,
		Event:  event.Error,
		Data:   compatReply{Status: "FAIL", SeqReply: seq, Error: &compatError{ID: code, Message: msg}},
		Target: event.ToSession(sessionID),
	}
}

func (d *compatDialect) encode(raw []byte) ([]byte, error) {
	var w event.Wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if w.Type == event.KindAck || w.Type == event.KindError {
		return w.Data, nil
	}
	out := compatEvent{
		Event:     compatName(w.Event),
		Data:      w.Data,
		Broadcast: compatBroadcast{ChannelID: w.ChannelID},
		Seq:       d.seq,
	}
	d.seq++
	return json.Marshal(out)
}

func (*compatDialect) authOK(cmd *Command) []byte {
	b, _ := json.Marshal(compatReply{Status: "OK", SeqReply: cmd.Seq})
	return b
}
