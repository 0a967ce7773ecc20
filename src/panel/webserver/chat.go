package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botpanel/botpanel/src/panel/storage"
	"github.com/botpanel/botpanel/src/panel/types"
)

const chatHistoryLimit = 50

type Chat struct {
	store storage.Store
	hub   *Hub
}

func NewChat(store storage.Store, hub *Hub) Chat {
	return Chat{store: store, hub: hub}
}

func (h Chat) List(c *gin.Context) {
	messages := h.store.GetChatMessages(c.GetString(ctxBotID), chatHistoryLimit)
	if messages == nil {
		messages = []types.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Send stores a test chat message as a synthetic non-bot user and pushes it
// to every open socket for the identity.
func (h Chat) Send(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	botID := c.GetString(ctxBotID)
	message := h.store.CreateChatMessage(types.ChatMessage{
		BotID:     botID,
		UserID:    "test-user",
		Username:  "Test User",
		Content:   req.Content,
		IsFromBot: false,
	})
	h.hub.Broadcast(botID, "chat_message", message)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
