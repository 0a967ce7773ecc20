package discord

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/botpanel/botpanel/src/panel/storage"
	"github.com/botpanel/botpanel/src/panel/types"
)

const defaultStatsInterval = 30 * time.Second

// Broadcaster pushes a typed frame to every open socket registered for a
// bot identity. The webserver hub implements it; a nil broadcaster is valid
// and drops frames.
type Broadcaster interface {
	Broadcast(botID, event string, data interface{})
}

// Service is the bot connection registry. It owns at most one live gateway
// handle per bot identity plus that identity's stats ticker. All map access
// goes through the mutex; per-identity operations beyond that are
// intentionally unserialized.
type Service struct {
	mu      sync.Mutex
	clients map[string]*client

	store         storage.Store
	broadcaster   Broadcaster
	newGateway    GatewayFactory
	statsInterval time.Duration
}

type client struct {
	gw          Gateway
	cancelStats context.CancelFunc
	connectedAt time.Time
	user        BotUser

	statusMu sync.Mutex
	status   string
}

// Option tweaks Service construction.
type Option func(*Service)

// WithGatewayFactory replaces the discordgo factory, used by tests.
func WithGatewayFactory(f GatewayFactory) Option {
	return func(s *Service) { s.newGateway = f }
}

// WithStatsInterval overrides the 30 second stats collection cadence.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

func NewService(store storage.Store, broadcaster Broadcaster, opts ...Option) *Service {
	s := &Service{
		clients:       make(map[string]*client),
		store:         store,
		broadcaster:   broadcaster,
		newGateway:    NewDiscordGateway,
		statsInterval: defaultStatsInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate opens a gateway connection for the token, records the
// session, attaches the event relay, starts stats collection and performs
// the initial roster sync. Re-authenticating an identity that is already
// connected releases the previous handle first, so exactly one live handle
// remains.
func (s *Service) Authenticate(ctx context.Context, token string) (BotUser, error) {
	gw, err := s.newGateway(token)
	if err != nil {
		return BotUser{}, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	if err := gw.Open(); err != nil {
		return BotUser{}, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	user, err := gw.Self()
	if err != nil {
		gw.Close()
		return BotUser{}, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}

	statsCtx, cancel := context.WithCancel(context.Background())
	c := &client{
		gw:          gw,
		cancelStats: cancel,
		connectedAt: time.Now(),
		user:        user,
		status:      "online",
	}

	s.mu.Lock()
	if prev, ok := s.clients[user.ID]; ok {
		prev.cancelStats()
		if err := prev.gw.Close(); err != nil {
			log.Printf("discord: close stale handle for %s: %v", user.ID, err)
		}
	}
	s.clients[user.ID] = c
	s.mu.Unlock()

	s.store.CreateBotSession(types.BotSession{
		BotID:            user.ID,
		BotToken:         token,
		BotUsername:      user.Username,
		BotDiscriminator: user.Discriminator,
		IsActive:         true,
	})

	gw.Subscribe(newRelay(user.ID, s.store, s.broadcaster))
	go s.collectStats(statsCtx, user.ID, c)

	if err := s.syncGuilds(user.ID, gw); err != nil {
		log.Printf("discord: guild sync for %s: %v", user.ID, err)
	}

	return user, nil
}

// Disconnect releases the live handle and its stats ticker. Returns false
// when no handle exists; that is a no-op, not an error.
func (s *Service) Disconnect(botID string) bool {
	s.mu.Lock()
	c, ok := s.clients[botID]
	if ok {
		delete(s.clients, botID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	c.cancelStats()
	if err := c.gw.Close(); err != nil {
		log.Printf("discord: close handle for %s: %v", botID, err)
	}
	s.store.UpdateBotSession(botID, func(sess *types.BotSession) { sess.IsActive = false })
	return true
}

// Connected reports whether a live handle exists for the identity.
func (s *Service) Connected(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.clients[botID]
	return ok
}

func (s *Service) client(botID string) (*client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[botID]
	return c, ok
}

// UpdateStatus sets the presence (online, idle, dnd, invisible). Returns
// false when the identity is not connected.
func (s *Service) UpdateStatus(botID, status string) bool {
	c, ok := s.client(botID)
	if !ok {
		return false
	}
	if err := c.gw.UpdateStatus(status); err != nil {
		log.Printf("discord: update status for %s: %v", botID, err)
		return false
	}
	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()
	s.store.UpdateBotSession(botID, func(sess *types.BotSession) {})
	return true
}

// UpdateCustomStatus sets an activity presence. The kind is validated
// before any gateway call.
func (s *Service) UpdateCustomStatus(botID, text, kind string) error {
	c, ok := s.client(botID)
	if !ok {
		return ErrNotConnected
	}
	k, err := ParseActivityKind(kind)
	if err != nil {
		return err
	}
	return c.gw.UpdateActivity(text, k)
}

// SendMessage resolves and sends to a channel or user, then writes exactly
// one BotMessage record reflecting the true outcome. The log write happens
// after the external call on both paths, never before.
func (s *Service) SendMessage(botID, targetType, targetID, content string) error {
	c, ok := s.client(botID)
	if !ok {
		return ErrNotConnected
	}

	var sendErr error
	switch targetType {
	case "channel":
		sendErr = c.gw.SendChannelMessage(targetID, content)
	case "user":
		sendErr = c.gw.SendUserMessage(targetID, content)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTarget, targetType)
	}

	rec := types.BotMessage{
		BotID:      botID,
		TargetType: targetType,
		TargetID:   targetID,
		Content:    content,
		Success:    sendErr == nil,
	}
	if sendErr != nil {
		rec.ErrorMessage = sendErr.Error()
		if IsRateLimit(sendErr) {
			log.Printf("discord: send for %s rate limited", botID)
		}
	}
	s.store.CreateBotMessage(rec)
	return sendErr
}

// GenerateInvite verifies membership then returns the OAuth2 bot-authorize
// URL for the application.
func (s *Service) GenerateInvite(botID, guildID string) (string, error) {
	c, ok := s.client(botID)
	if !ok {
		return "", ErrNotConnected
	}
	if _, err := c.gw.Guild(guildID); err != nil {
		return "", err
	}
	url := fmt.Sprintf("https://discord.com/api/oauth2/authorize?client_id=%s&scope=bot&permissions=0", c.user.ID)
	return url, nil
}

// LeaveGuild leaves at the external service and deactivates the roster row.
// History is kept.
func (s *Service) LeaveGuild(botID, guildID string) error {
	c, ok := s.client(botID)
	if !ok {
		return ErrNotConnected
	}
	if err := c.gw.LeaveGuild(guildID); err != nil {
		return err
	}
	s.store.UpdateBotGuild(botID, guildID, func(g *types.BotGuild) { g.IsActive = false })
	return nil
}

const (
	channelTypeText  = 0
	channelTypeVoice = 2
)

// GuildChannels lists the guild's text and voice channels ordered by
// position.
func (s *Service) GuildChannels(botID, guildID string) ([]ChannelInfo, error) {
	c, ok := s.client(botID)
	if !ok {
		return nil, ErrNotConnected
	}
	channels, err := c.gw.GuildChannels(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		if ch.Type == channelTypeText || ch.Type == channelTypeVoice {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ChannelMessages fetches the most recent limit messages and returns them
// oldest first.
func (s *Service) ChannelMessages(botID, channelID string, limit int) ([]MessageInfo, error) {
	c, ok := s.client(botID)
	if !ok {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 50
	}
	msgs, err := c.gw.ChannelMessages(channelID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Shutdown releases every live handle. Used at process exit.
func (s *Service) Shutdown() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for botID, c := range clients {
		c.cancelStats()
		if err := c.gw.Close(); err != nil {
			log.Printf("discord: close handle for %s: %v", botID, err)
		}
		s.store.UpdateBotSession(botID, func(sess *types.BotSession) { sess.IsActive = false })
	}
}

func (s *Service) collectStats(ctx context.Context, botID string, c *client) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recordStats(botID, c)
		}
	}
}

func (s *Service) recordStats(botID string, c *client) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	c.statusMu.Lock()
	status := c.status
	c.statusMu.Unlock()
	s.store.PutBotStats(types.BotStats{
		BotID:       botID,
		Ping:        int(c.gw.Latency().Milliseconds()),
		Uptime:      int(time.Since(c.connectedAt).Seconds()),
		MemoryUsage: int(ms.HeapAlloc / 1024 / 1024),
		GuildCount:  c.gw.GuildCount(),
		UserCount:   c.gw.UserCount(),
		Status:      status,
	})
}

func (s *Service) syncGuilds(botID string, gw Gateway) error {
	guilds, err := gw.Guilds()
	if err != nil {
		return err
	}
	for _, g := range guilds {
		s.store.UpsertBotGuild(types.BotGuild{
			BotID:       botID,
			GuildID:     g.ID,
			GuildName:   g.Name,
			GuildIcon:   g.Icon,
			MemberCount: g.MemberCount,
			Permissions: g.Permissions,
			IsActive:    true,
		})
	}
	return nil
}
