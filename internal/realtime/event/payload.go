package event

import (
	"time"

	"team_chat_server/internal/model"

	"github.com/google/uuid"
)

// File 附件元数据
type File struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"mime_type"`
	Size     int64     `json:"size"`
}

// Post message_created / thread_reply_created 载荷
type Post struct {
	ID          uuid.UUID      `json:"id"`
	ChannelID   uuid.UUID      `json:"channel_id"`
	UserID      uuid.UUID      `json:"user_id"`
	RootPostID  *uuid.UUID     `json:"root_post_id,omitempty"`
	Message     string         `json:"message"`
	Props       map[string]any `json:"props"`
	FileIDs     []uuid.UUID    `json:"file_ids"`
	Files       []File         `json:"files,omitempty"`
	IsPinned    bool           `json:"is_pinned"`
	ReplyCount  int64          `json:"reply_count"`
	LastReplyAt *time.Time     `json:"last_reply_at,omitempty"`
	Seq         int64          `json:"seq"`
	CreatedAt   time.Time      `json:"created_at"`
	EditedAt    *time.Time     `json:"edited_at,omitempty"`
	Username    string         `json:"username,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	ClientMsgID string         `json:"client_msg_id,omitempty"`
}

// NewPost 由持久化实体构造载荷，author 与 files 可为空
func NewPost(p *model.Post, author *model.User, files []model.FileInfo) Post {
	out := Post{
		ID:          p.ID,
		ChannelID:   p.ChannelID,
		UserID:      p.UserID,
		RootPostID:  p.RootPostID,
		Message:     p.Message,
		Props:       map[string]any(p.Props),
		FileIDs:     []uuid.UUID(p.FileIDs),
		IsPinned:    p.IsPinned,
		ReplyCount:  p.ReplyCount,
		LastReplyAt: p.LastReplyAt,
		Seq:         p.Seq,
		CreatedAt:   p.CreatedAt,
		EditedAt:    p.EditedAt,
	}
	if out.Props == nil {
		out.Props = map[string]any{}
	}
	if out.FileIDs == nil {
		out.FileIDs = []uuid.UUID{}
	}
	if author != nil {
		out.Username = author.Username
		out.DisplayName = author.Name()
		out.AvatarURL = author.AvatarURL
	}
	for _, f := range files {
		out.Files = append(out.Files, File{ID: f.ID, Name: f.Name, MimeType: f.MimeType, Size: f.Size})
	}
	return out
}

// PostUpdate message_updated 载荷，只携带变化的字段
type PostUpdate struct {
	ID            uuid.UUID  `json:"id"`
	ChannelID     uuid.UUID  `json:"channel_id"`
	Message       *string    `json:"message,omitempty"`
	IsPinned      *bool      `json:"is_pinned,omitempty"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	ReplyCount    *int64     `json:"reply_count,omitempty"`
	ReplyCountInc int64      `json:"reply_count_inc,omitempty"`
	LastReplyAt   *time.Time `json:"last_reply_at,omitempty"`
}

// PostDeleted message_deleted 载荷
type PostDeleted struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
}

// Reaction reaction_added / reaction_removed 载荷
type Reaction struct {
	UserID    uuid.UUID `json:"user_id"`
	PostID    uuid.UUID `json:"post_id"`
	ChannelID uuid.UUID `json:"channel_id"`
	EmojiName string    `json:"emoji_name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReaction(r *model.Reaction) Reaction {
	return Reaction{
		UserID:    r.UserID,
		PostID:    r.PostID,
		ChannelID: r.ChannelID,
		EmojiName: r.EmojiName,
		CreatedAt: r.CreatedAt,
	}
}

// Typing user_typing / user_typing_stop 载荷
type Typing struct {
	UserID      uuid.UUID  `json:"user_id"`
	DisplayName string     `json:"display_name"`
	ThreadRoot  *uuid.UUID `json:"thread_root,omitempty"`
}

// Presence user_presence 载荷
type Presence struct {
	UserID uuid.UUID      `json:"user_id"`
	Status model.Presence `json:"status"`
}

// User user_updated 载荷，不包含邮箱
type User struct {
	ID          uuid.UUID      `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Role        string         `json:"role"`
	Presence    model.Presence `json:"presence"`
}

func NewUser(u *model.User) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		Presence:    u.Presence,
	}
}

// Channel channel_created / channel_updated / channel_deleted 载荷
type Channel struct {
	ID          uuid.UUID         `json:"id"`
	TeamID      uuid.UUID         `json:"team_id"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Purpose     string            `json:"purpose,omitempty"`
	Header      string            `json:"header,omitempty"`
	Type        model.ChannelType `json:"type"`
	IsArchived  bool              `json:"is_archived"`
	CreatorID   uuid.UUID         `json:"creator_id"`
	LastPostSeq int64             `json:"last_post_seq"`
}

func NewChannel(c *model.Channel) Channel {
	return Channel{
		ID:          c.ID,
		TeamID:      c.TeamID,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Purpose:     c.Purpose,
		Header:      c.Header,
		Type:        c.Type,
		IsArchived:  c.IsArchived,
		CreatorID:   c.CreatorID,
		LastPostSeq: c.LastPostSeq,
	}
}

// Member member_added / member_removed 载荷
type Member struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	ActorID   uuid.UUID `json:"actor_id,omitempty"`
}

// Config config_updated 载荷
type Config struct {
	Category string         `json:"category"`
	Config   map[string]any `json:"config"`
}

// UnreadCounts unread_counts_updated 载荷
type UnreadCounts struct {
	ChannelID   uuid.UUID `json:"channel_id"`
	TeamID      uuid.UUID `json:"team_id"`
	UnreadCount int64     `json:"unread_count"`
}

// HelloData 连接建立后的第一条消息
type HelloData struct {
	ServerVersion string    `json:"server_version"`
	ConnectionID  string    `json:"connection_id"`
	UserID        uuid.UUID `json:"user_id"`
}

// ErrorData error 事件载荷
type ErrorData struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// Subscription channel_subscribed / channel_unsubscribed 载荷
type Subscription struct {
	ChannelID uuid.UUID `json:"channel_id"`
}
