// Package event 定义实时事件信封、路由目标与事件载荷
package event

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind 信封类型
type Kind string

const (
	KindEvent Kind = "event"
	KindAck   Kind = "ack"
	KindError Kind = "error"
)

// Envelope 事件传输单元
// Target 只用于路由，序列化时丢弃
type Envelope struct {
	Kind      Kind
	Event     Name
	Seq       *int64
	ChannelID *uuid.UUID
	Data      any
	Target    Target
}

// Wire 线路上的信封形态
type Wire struct {
	Type      Kind            `json:"type"`
	Event     string          `json:"event"`
	Seq       *int64          `json:"seq,omitempty"`
	ChannelID *uuid.UUID      `json:"channel_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type wireOut struct {
	Type      Kind       `json:"type"`
	Event     string     `json:"event"`
	Seq       *int64     `json:"seq,omitempty"`
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
	Data      any        `json:"data,omitempty"`
}

// MarshalJSON 事件名以字符串输出，Target 不出现在结果中
func (e Envelope) MarshalJSON() ([]byte, error) {
	kind := e.Kind
	if kind == "" {
		kind = KindEvent
	}
	return json.Marshal(wireOut{
		Type:      kind,
		Event:     e.Event.String(),
		Seq:       e.Seq,
		ChannelID: e.ChannelID,
		Data:      e.Data,
	})
}

// New 构造事件信封
func New(name Name, target Target, data any) Envelope {
	return Envelope{Kind: KindEvent, Event: name, Data: data, Target: target}
}

// NewInChannel 构造携带 channel_id 的事件信封
func NewInChannel(name Name, channelID uuid.UUID, target Target, data any) Envelope {
	c := channelID
	return Envelope{Kind: KindEvent, Event: name, ChannelID: &c, Data: data, Target: target}
}

// NewAck 构造 ack 信封
func NewAck(name Name, target Target, data any) Envelope {
	return Envelope{Kind: KindAck, Event: name, Data: data, Target: target}
}

// NewError 客户端可恢复错误，以 event 类型投递保证与该连接的其他事件有序
func NewError(target Target, code int, message string) Envelope {
	return Envelope{
		Kind:   KindEvent,
		Event:  Error,
		Data:   ErrorData{Code: code, Message: message},
		Target: target,
	}
}
