package event

// Name 内部事件目录，只有在线路边界才转换为字符串
type Name uint8

const (
	Unknown Name = iota
	MessageCreated
	ThreadReplyCreated
	MessageUpdated
	MessageDeleted
	ReactionAdded
	ReactionRemoved
	UserTyping
	UserTypingStop
	UserPresence
	UserUpdated
	ChannelCreated
	ChannelUpdated
	ChannelDeleted
	MemberAdded
	MemberRemoved
	ConfigUpdated
	UnreadCountsUpdated
	ChannelSubscribed
	ChannelUnsubscribed
	Hello
	Error
	Pong
	ActionResult
)

var names = [...]string{
	Unknown:             "unknown",
	MessageCreated:      "message_created",
	ThreadReplyCreated:  "thread_reply_created",
	MessageUpdated:      "message_updated",
	MessageDeleted:      "message_deleted",
	ReactionAdded:       "reaction_added",
	ReactionRemoved:     "reaction_removed",
	UserTyping:          "user_typing",
	UserTypingStop:      "user_typing_stop",
	UserPresence:        "user_presence",
	UserUpdated:         "user_updated",
	ChannelCreated:      "channel_created",
	ChannelUpdated:      "channel_updated",
	ChannelDeleted:      "channel_deleted",
	MemberAdded:         "member_added",
	MemberRemoved:       "member_removed",
	ConfigUpdated:       "config_updated",
	UnreadCountsUpdated: "unread_counts_updated",
	ChannelSubscribed:   "channel_subscribed",
	ChannelUnsubscribed: "channel_unsubscribed",
	Hello:               "hello",
	Error:               "error",
	Pong:                "pong",
	ActionResult:        "action_result",
}

// String 线路上的事件名
func (n Name) String() string {
	if int(n) < len(names) {
		return names[n]
	}
	return names[Unknown]
}

// ParseName 线路事件名转回内部枚举，未知名称返回 Unknown
func ParseName(s string) Name {
	for i, v := range names {
		if v == s {
			return Name(i)
		}
	}
	return Unknown
}

// Names 全部已知事件，按枚举顺序
func Names() []Name {
	out := make([]Name, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		out = append(out, Name(i))
	}
	return out
}
