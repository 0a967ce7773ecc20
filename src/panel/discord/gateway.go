package discord

import "time"

// BotUser identifies the authenticated bot account.
type BotUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	Avatar        string    `json:"avatar"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GuildInfo is the subset of guild state the panel cares about.
type GuildInfo struct {
	ID          string
	Name        string
	Icon        string
	MemberCount int
	Permissions string
}

// ChannelInfo mirrors the fields the channel browser renders.
type ChannelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     int    `json:"type"`
	Position int    `json:"position"`
	ParentID string `json:"parentId,omitempty"`
}

// MessageAuthor is the author block attached to a fetched message.
type MessageAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Bot      bool   `json:"bot"`
}

// MessageInfo is one fetched channel message.
type MessageInfo struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Author    MessageAuthor `json:"author"`
	Timestamp time.Time     `json:"timestamp"`
	ChannelID string        `json:"channelId"`
	GuildID   string        `json:"guildId,omitempty"`
}

// InboundMessage is a message received over the gateway.
type InboundMessage struct {
	UserID   string
	Username string
	Content  string
	FromBot  bool
}

// EventHandler receives gateway events for one bot identity. Handlers are
// registered once at connect time and stay attached for the life of the
// connection.
type EventHandler interface {
	HandleInboundMessage(msg InboundMessage)
	HandleGuildJoin(guild GuildInfo)
	HandleGuildLeave(guildID string)
}

// Gateway is the slice of the chat-platform SDK the registry depends on.
// The production implementation wraps a discordgo session; tests substitute
// a fake.
type Gateway interface {
	Open() error
	Close() error

	Self() (BotUser, error)
	Latency() time.Duration
	GuildCount() int
	UserCount() int

	Guilds() ([]GuildInfo, error)
	Guild(guildID string) (GuildInfo, error)
	GuildChannels(guildID string) ([]ChannelInfo, error)
	ChannelMessages(channelID string, limit int) ([]MessageInfo, error)

	SendChannelMessage(channelID, content string) error
	SendUserMessage(userID, content string) error
	LeaveGuild(guildID string) error

	UpdateStatus(status string) error
	UpdateActivity(text string, kind ActivityKind) error

	Subscribe(h EventHandler)
}

// GatewayFactory builds an unopened gateway for a bot token.
type GatewayFactory func(token string) (Gateway, error)
