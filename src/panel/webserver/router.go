package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/botpanel/botpanel/src/panel/config"
	"github.com/botpanel/botpanel/src/panel/data"
	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
)

func attachRoutes(r *gin.Engine, cfg config.Config, svc *discord.Service, store storage.Store, sessions data.SessionStore, hub *Hub) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(svc, store, sessions, []byte(cfg.JWTSecret), cfg.SessionTTL)
	botH := NewBot(svc, store)
	chatH := NewChat(store, hub)

	api := r.Group("/api")
	{
		api.POST("/auth/bot", authH.Login)

		secured := api.Group("")
		secured.Use(SessionMiddleware([]byte(cfg.JWTSecret), sessions))
		{
			secured.GET("/auth/session", authH.Session)
			secured.POST("/auth/disconnect", authH.Disconnect)

			bot := secured.Group("/bot")
			bot.POST("/status", botH.UpdateStatus)
			bot.GET("/stats", botH.Stats)
			bot.POST("/message", botH.SendMessage)
			bot.GET("/messages", botH.Messages)
			bot.GET("/guilds", botH.Guilds)
			bot.POST("/guilds/:guildId/invite", botH.Invite)
			bot.POST("/guilds/:guildId/leave", botH.LeaveGuild)
			bot.GET("/guilds/:guildId/channels", botH.GuildChannels)
			bot.GET("/channels/:channelId/messages", botH.ChannelMessages)
			bot.GET("/chat", chatH.List)
			bot.POST("/chat", chatH.Send)
			bot.POST("/custom-status", botH.CustomStatus)
		}
	}

	r.GET("/ws", hub.HandleWS)
}
