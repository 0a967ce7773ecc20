package discord

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
)

// discordGateway adapts a discordgo session to the Gateway interface.
type discordGateway struct {
	session *discordgo.Session
}

// NewDiscordGateway is the production GatewayFactory.
func NewDiscordGateway(token string) (Gateway, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return &discordGateway{session: dg}, nil
}

func (g *discordGateway) Open() error  { return g.session.Open() }
func (g *discordGateway) Close() error { return g.session.Close() }

func (g *discordGateway) Self() (BotUser, error) {
	u := g.session.State.User
	if u == nil {
		var err error
		u, err = g.session.User("@me")
		if err != nil {
			return BotUser{}, err
		}
	}
	created, _ := discordgo.SnowflakeTimestamp(u.ID)
	return BotUser{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
		CreatedAt:     created,
	}, nil
}

func (g *discordGateway) Latency() time.Duration { return g.session.HeartbeatLatency() }

func (g *discordGateway) GuildCount() int { return len(g.session.State.Guilds) }

func (g *discordGateway) UserCount() int {
	n := 0
	for _, gu := range g.session.State.Guilds {
		n += gu.MemberCount
	}
	return n
}

func (g *discordGateway) Guilds() ([]GuildInfo, error) {
	guilds, err := g.session.UserGuilds(200, "", "", true)
	if err != nil {
		return nil, err
	}
	out := make([]GuildInfo, 0, len(guilds))
	for _, ug := range guilds {
		out = append(out, GuildInfo{
			ID:          ug.ID,
			Name:        ug.Name,
			Icon:        ug.Icon,
			MemberCount: ug.ApproximateMemberCount,
			Permissions: strconv.FormatInt(ug.Permissions, 10),
		})
	}
	return out, nil
}

func (g *discordGateway) Guild(guildID string) (GuildInfo, error) {
	gu, err := g.session.Guild(guildID)
	if err != nil {
		return GuildInfo{}, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	return GuildInfo{
		ID:          gu.ID,
		Name:        gu.Name,
		Icon:        gu.Icon,
		MemberCount: gu.MemberCount,
	}, nil
}

func (g *discordGateway) GuildChannels(guildID string) ([]ChannelInfo, error) {
	channels, err := g.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	out := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelInfo{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     int(ch.Type),
			Position: ch.Position,
			ParentID: ch.ParentID,
		})
	}
	return out, nil
}

func (g *discordGateway) ChannelMessages(channelID string, limit int) ([]MessageInfo, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, channelID)
	}
	out := make([]MessageInfo, 0, len(msgs))
	for _, m := range msgs {
		info := MessageInfo{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
		}
		if m.Author != nil {
			info.Author = MessageAuthor{
				ID:       m.Author.ID,
				Username: m.Author.Username,
				Avatar:   m.Author.Avatar,
				Bot:      m.Author.Bot,
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func (g *discordGateway) SendChannelMessage(channelID, content string) error {
	if _, err := g.session.Channel(channelID); err != nil {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, channelID)
	}
	if _, err := g.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("%w: %v", ErrSendRejected, err)
	}
	return nil
}

func (g *discordGateway) SendUserMessage(userID, content string) error {
	ch, err := g.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, userID)
	}
	if _, err := g.session.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("%w: %v", ErrSendRejected, err)
	}
	return nil
}

func (g *discordGateway) LeaveGuild(guildID string) error {
	if err := g.session.GuildLeave(guildID); err != nil {
		return fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	return nil
}

func (g *discordGateway) UpdateStatus(status string) error {
	return g.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     status,
		Activities: []*discordgo.Activity{},
	})
}

func (g *discordGateway) UpdateActivity(text string, kind ActivityKind) error {
	activity := &discordgo.Activity{
		Name: text,
		Type: activityTypes[kind],
	}
	if kind == ActivityStreaming {
		// Streaming presences require a URL to render as streaming.
		activity.URL = "https://twitch.tv/discord"
	}
	return g.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{activity},
	})
}

func (g *discordGateway) Subscribe(h EventHandler) {
	g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		h.HandleInboundMessage(InboundMessage{
			UserID:   m.Author.ID,
			Username: m.Author.Username,
			Content:  m.Content,
			FromBot:  m.Author.Bot,
		})
	})
	g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildCreate) {
		h.HandleGuildJoin(GuildInfo{
			ID:          e.ID,
			Name:        e.Name,
			Icon:        e.Icon,
			MemberCount: e.MemberCount,
		})
	})
	g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildDelete) {
		h.HandleGuildLeave(e.ID)
	})
}
