package webserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
	"github.com/botpanel/botpanel/src/panel/types"
)

const recentMessageCount = 10

type Bot struct {
	svc   *discord.Service
	store storage.Store
}

func NewBot(svc *discord.Service, store storage.Store) Bot {
	return Bot{svc: svc, store: store}
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, discord.ErrNotConnected),
		errors.Is(err, discord.ErrTargetNotFound),
		errors.Is(err, discord.ErrInvalidTarget),
		errors.Is(err, discord.ErrGuildNotFound),
		errors.Is(err, discord.ErrInvalidActivityKind),
		errors.Is(err, discord.ErrSendRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (b Bot) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=online idle dnd invisible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	success := b.svc.UpdateStatus(c.GetString(ctxBotID), req.Status)
	c.JSON(http.StatusOK, gin.H{"success": success})
}

func (b Bot) Stats(c *gin.Context) {
	stats, ok := b.store.GetLatestBotStats(c.GetString(ctxBotID))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"stats": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (b Bot) SendMessage(c *gin.Context) {
	var req struct {
		TargetType string `json:"targetType" binding:"required,oneof=channel user"`
		TargetID   string `json:"targetId" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Discord content is plain text; it goes out exactly as submitted so
	// the send and the log match what the operator typed.
	if err := b.svc.SendMessage(c.GetString(ctxBotID), req.TargetType, req.TargetID, req.Content); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b Bot) Messages(c *gin.Context) {
	messages := b.store.GetBotMessages(c.GetString(ctxBotID), recentMessageCount)
	if messages == nil {
		messages = []types.BotMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Guilds lists the active roster only; departed guilds stay in storage but
// are not shown.
func (b Bot) Guilds(c *gin.Context) {
	all := b.store.GetBotGuilds(c.GetString(ctxBotID))
	active := make([]types.BotGuild, 0, len(all))
	for _, g := range all {
		if g.IsActive {
			active = append(active, g)
		}
	}
	c.JSON(http.StatusOK, gin.H{"guilds": active})
}

func (b Bot) Invite(c *gin.Context) {
	url, err := b.svc.GenerateInvite(c.GetString(ctxBotID), c.Param("guildId"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inviteUrl": url})
}

func (b Bot) LeaveGuild(c *gin.Context) {
	if err := b.svc.LeaveGuild(c.GetString(ctxBotID), c.Param("guildId")); err != nil {
		c.JSON(errStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b Bot) GuildChannels(c *gin.Context) {
	channels, err := b.svc.GuildChannels(c.GetString(ctxBotID), c.Param("guildId"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	if channels == nil {
		channels = []discord.ChannelInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "channels": channels})
}

func (b Bot) ChannelMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := b.svc.ChannelMessages(c.GetString(ctxBotID), c.Param("channelId"), limit)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []discord.MessageInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

func (b Bot) CustomStatus(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required,min=1,max=128"`
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := b.svc.UpdateCustomStatus(c.GetString(ctxBotID), req.Text, req.Type); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
