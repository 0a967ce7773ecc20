package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/botpanel/botpanel/src/panel/config"
	"github.com/botpanel/botpanel/src/panel/data"
	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
)

func New(cfg config.Config, svc *discord.Service, store storage.Store, sessions data.SessionStore, hub *Hub) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, svc, store, sessions, hub)
	return g
}
