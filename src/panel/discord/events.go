package discord

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/botpanel/botpanel/src/panel/storage"
	"github.com/botpanel/botpanel/src/panel/types"
)

// Inbound content comes from arbitrary Discord users and ends up rendered
// in the operator's browser; strip any markup before it is stored.
var inboundSanitizer = bluemonday.UGCPolicy()

// relay mirrors gateway events into storage and onto the push channel. It
// stays attached for the life of the connection and never detaches on
// error.
type relay struct {
	botID       string
	store       storage.Store
	broadcaster Broadcaster
}

func newRelay(botID string, store storage.Store, broadcaster Broadcaster) *relay {
	return &relay{botID: botID, store: store, broadcaster: broadcaster}
}

func (r *relay) HandleInboundMessage(msg InboundMessage) {
	// Bot-authored messages (including our own sends) stay out of the chat
	// log.
	if msg.FromBot {
		return
	}
	stored := r.store.CreateChatMessage(types.ChatMessage{
		BotID:     r.botID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Content:   inboundSanitizer.Sanitize(msg.Content),
		IsFromBot: false,
	})
	r.notify("chat_message", stored)
}

func (r *relay) HandleGuildJoin(guild GuildInfo) {
	row := r.store.UpsertBotGuild(types.BotGuild{
		BotID:       r.botID,
		GuildID:     guild.ID,
		GuildName:   guild.Name,
		GuildIcon:   guild.Icon,
		MemberCount: guild.MemberCount,
		Permissions: guild.Permissions,
		IsActive:    true,
	})
	r.notify("guild_update", row)
}

func (r *relay) HandleGuildLeave(guildID string) {
	row, ok := r.store.UpdateBotGuild(r.botID, guildID, func(g *types.BotGuild) { g.IsActive = false })
	if !ok {
		return
	}
	r.notify("guild_update", row)
}

func (r *relay) notify(event string, data interface{}) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.Broadcast(r.botID, event, data)
}
