package webserver

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/botpanel/botpanel/src/panel/storage"
)

const (
	defaultBroadcastInterval = 5 * time.Second
	defaultWriteTimeout      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is the single frame shape used in both directions over the push
// channel.
type wsFrame struct {
	Type  string      `json:"type"`
	BotID string      `json:"botId,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// wsClient pairs a conn with its own write lock. gorilla conns allow one
// writer at a time; the relay, the stats tick and auth replies can overlap,
// but only writes to the same conn need to serialize.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub owns the per-bot-identity set of open push connections. A connection
// joins a set only after sending an auth frame; everything it sends before
// that is ignored. Delivery is best-effort: a conn that fails or times out
// a write is dropped, never retried.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*wsClient]struct{}

	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		conns:        make(map[string]map[*wsClient]struct{}),
		writeTimeout: defaultWriteTimeout,
	}
}

func (h *Hub) writeFrame(c *wsClient, frame wsFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return c.conn.WriteJSON(frame)
}

func (h *Hub) register(botID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[botID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.conns[botID] = set
	}
	set[c] = struct{}{}
}

// unregister is safe to call for conns that were never registered.
func (h *Hub) unregister(botID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[botID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, botID)
		}
	}
}

// identities returns the bot ids with at least one open connection.
func (h *Hub) identities() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.conns))
	for id := range h.conns {
		out = append(out, id)
	}
	return out
}

// ConnCount reports the number of open conns for an identity.
func (h *Hub) ConnCount(botID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[botID])
}

// Broadcast sends a frame to every open connection registered for the
// identity. Implements discord.Broadcaster. Zero registered conns is a
// no-op. A stalled peer costs at most the write timeout and only for its
// own conn; other conns and identities are unaffected.
func (h *Hub) Broadcast(botID, event string, data interface{}) {
	frame := wsFrame{Type: event, Data: data}

	h.mu.Lock()
	set := h.conns[botID]
	targets := make([]*wsClient, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := h.writeFrame(c, frame); err != nil {
			// Closed, broken or timed out mid-broadcast; drop and move on.
			h.unregister(botID, c)
			c.conn.Close()
		}
	}
}

// HandleWS upgrades the request and runs the connection's read loop. The
// first recognized auth frame registers the conn under its bot identity.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}
	client := &wsClient{conn: conn}

	botID := ""
	defer func() {
		if botID != "" {
			h.unregister(botID, client)
		}
		conn.Close()
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != "auth" || frame.BotID == "" {
			continue
		}
		if botID == "" {
			botID = frame.BotID
			h.register(botID, client)
		}
		if err := h.writeFrame(client, wsFrame{Type: "auth_success", BotID: botID}); err != nil {
			return
		}
	}
}

// RunStatsBroadcast re-reads and pushes the latest stats snapshot for every
// identity with at least one open connection. Identities nobody is watching
// cost nothing. Runs until the context is cancelled.
func (h *Hub) RunStatsBroadcast(ctx context.Context, store storage.Store, interval time.Duration) {
	if interval <= 0 {
		interval = defaultBroadcastInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, botID := range h.identities() {
				stats, ok := store.GetLatestBotStats(botID)
				if !ok {
					continue
				}
				h.Broadcast(botID, "stats_update", stats)
			}
		}
	}
}
