package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
)

// 客户端命令
const (
	cmdAuthChallenge      = "authentication_challenge"
	cmdSendMessage        = "send_message"
	cmdSubscribeChannel   = "subscribe_channel"
	cmdUnsubscribeChannel = "unsubscribe_channel"
	cmdTyping             = "typing"
	cmdTypingStop         = "typing_stop"
	cmdPresence           = "presence"
	cmdPing               = "ping"

	// 兼容协议的别名
	cmdCompatTyping = "user_typing"
)

// Command 客户端帧
// 原生协议用 event 字段，兼容协议用 action + seq
type Command struct {
	Event       string          `json:"event"`
	Action      string          `json:"action"`
	Seq         int64           `json:"seq"`
	ChannelID   *uuid.UUID      `json:"channel_id"`
	Data        json.RawMessage `json:"data"`
	ClientMsgID string          `json:"client_msg_id"`
}

// Name 归一化后的命令名
func (c *Command) Name() string {
	name := c.Event
	if name == "" {
		name = c.Action
	}
	if name == cmdCompatTyping {
		return cmdTyping
	}
	return name
}

// decodeData data 为空时保留零值
func (c *Command) decodeData(v any) error {
	if len(c.Data) == 0 || string(c.Data) == "null" {
		return nil
	}
	return json.Unmarshal(c.Data, v)
}

type authPayload struct {
	Token string `json:"token"`
}

type sendMessagePayload struct {
	ChannelID   *uuid.UUID     `json:"channel_id"`
	Message     string         `json:"message" validate:"max=16383"`
	RootPostID  *uuid.UUID     `json:"root_post_id"`
	Props       map[string]any `json:"props"`
	FileIDs     []uuid.UUID    `json:"file_ids" validate:"max=10"`
	ClientMsgID string         `json:"client_msg_id" validate:"max=64"`
}

type channelPayload struct {
	ChannelID  *uuid.UUID `json:"channel_id"`
	ThreadRoot *uuid.UUID `json:"thread_root"`
	ParentID   *uuid.UUID `json:"parent_id"`
}

type presencePayload struct {
	Status string `json:"status" validate:"required,oneof=online away dnd"`
}

// channelOf 频道 ID 可以放在帧上，也可以放在 data 里
func channelOf(cmd *Command, fromData *uuid.UUID) (uuid.UUID, bool) {
	if cmd.ChannelID != nil && *cmd.ChannelID != uuid.Nil {
		return *cmd.ChannelID, true
	}
	if fromData != nil && *fromData != uuid.Nil {
		return *fromData, true
	}
	return uuid.Nil, false
}
