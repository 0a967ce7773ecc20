package webserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/botpanel/botpanel/src/panel/data"
	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
)

type Auth struct {
	svc      *discord.Service
	store    storage.Store
	sessions data.SessionStore
	secret   []byte
	ttl      time.Duration
}

func NewAuth(svc *discord.Service, store storage.Store, sessions data.SessionStore, secret []byte, ttl time.Duration) Auth {
	return Auth{svc: svc, store: store, sessions: sessions, secret: secret, ttl: ttl}
}

// Login authenticates a bot token and binds the resulting identity to a
// fresh bearer token.
func (a Auth) Login(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	bot, err := a.svc.Authenticate(c.Request.Context(), req.Token)
	if err != nil {
		log.Printf("auth: login from %s failed: %v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	token, tokenID, err := issueToken(bot.ID, a.secret, a.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}
	if err := a.sessions.Bind(c.Request.Context(), tokenID, bot.ID, a.ttl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	log.Printf("auth: bot %s (%s) connected from %s", bot.Username, bot.ID, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "bot": bot, "token": token})
}

// Session returns the current bot session for the bound identity.
func (a Auth) Session(c *gin.Context) {
	botID := c.GetString(ctxBotID)
	session, ok := a.store.GetBotSession(botID)
	if !ok || !session.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bot session not found or inactive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"botId": botID, "session": session})
}

// Disconnect releases the live handle and unbinds the session token.
func (a Auth) Disconnect(c *gin.Context) {
	botID := c.GetString(ctxBotID)
	if !a.svc.Disconnect(botID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to disconnect bot"})
		return
	}
	if err := a.sessions.Revoke(c.Request.Context(), c.GetString(ctxTokenID)); err != nil {
		log.Printf("auth: revoke session for %s: %v", botID, err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
