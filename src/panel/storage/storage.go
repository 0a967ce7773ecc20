package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/botpanel/botpanel/src/panel/types"
)

// Store is the persistence surface shared by the registry, the event relay
// and the webserver. Implementations must be safe for concurrent use.
type Store interface {
	GetBotSession(botID string) (*types.BotSession, bool)
	CreateBotSession(session types.BotSession) types.BotSession
	UpdateBotSession(botID string, fn func(*types.BotSession)) (*types.BotSession, bool)
	DeleteBotSession(botID string) bool

	CreateBotMessage(msg types.BotMessage) types.BotMessage
	GetBotMessages(botID string, limit int) []types.BotMessage

	UpsertBotGuild(guild types.BotGuild) types.BotGuild
	GetBotGuilds(botID string) []types.BotGuild
	UpdateBotGuild(botID, guildID string, fn func(*types.BotGuild)) (*types.BotGuild, bool)
	DeleteBotGuild(botID, guildID string) bool

	PutBotStats(stats types.BotStats) types.BotStats
	GetLatestBotStats(botID string) (*types.BotStats, bool)

	CreateChatMessage(msg types.ChatMessage) types.ChatMessage
	GetChatMessages(botID string, limit int) []types.ChatMessage
}

// MemStorage keeps everything in process memory. Records survive only until
// restart, which is enough for the dashboard's session-scoped views.
type MemStorage struct {
	mu       sync.RWMutex
	sessions map[string]types.BotSession
	messages []types.BotMessage
	guilds   map[string][]types.BotGuild
	stats    map[string]types.BotStats
	chat     map[string][]types.ChatMessage
	nextID   uint64
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		sessions: make(map[string]types.BotSession),
		guilds:   make(map[string][]types.BotGuild),
		stats:    make(map[string]types.BotStats),
		chat:     make(map[string][]types.ChatMessage),
		nextID:   1,
	}
}

func (m *MemStorage) nextSeq() uint64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MemStorage) GetBotSession(botID string) (*types.BotSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[botID]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (m *MemStorage) CreateBotSession(session types.BotSession) types.BotSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	session.ID = m.nextSeq()
	session.CreatedAt = now
	session.LastActiveAt = now
	m.sessions[session.BotID] = session
	return session
}

func (m *MemStorage) UpdateBotSession(botID string, fn func(*types.BotSession)) (*types.BotSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[botID]
	if !ok {
		return nil, false
	}
	fn(&s)
	s.LastActiveAt = time.Now()
	m.sessions[botID] = s
	return &s, true
}

func (m *MemStorage) DeleteBotSession(botID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[botID]; !ok {
		return false
	}
	delete(m.sessions, botID)
	return true
}

func (m *MemStorage) CreateBotMessage(msg types.BotMessage) types.BotMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextSeq()
	msg.SentAt = time.Now()
	m.messages = append(m.messages, msg)
	return msg
}

// GetBotMessages returns the most recent messages, newest first.
func (m *MemStorage) GetBotMessages(botID string, limit int) []types.BotMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.BotMessage
	for _, msg := range m.messages {
		if msg.BotID == botID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SentAt.After(out[j].SentAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UpsertBotGuild inserts a roster row or refreshes the existing one for the
// same (bot, guild) pair. Join events after a departure reactivate the row.
func (m *MemStorage) UpsertBotGuild(guild types.BotGuild) types.BotGuild {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.guilds[guild.BotID]
	for i := range rows {
		if rows[i].GuildID == guild.GuildID {
			guild.ID = rows[i].ID
			guild.JoinedAt = rows[i].JoinedAt
			rows[i] = guild
			m.guilds[guild.BotID] = rows
			return guild
		}
	}
	guild.ID = m.nextSeq()
	guild.JoinedAt = time.Now()
	m.guilds[guild.BotID] = append(rows, guild)
	return guild
}

func (m *MemStorage) GetBotGuilds(botID string) []types.BotGuild {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.guilds[botID]
	out := make([]types.BotGuild, len(rows))
	copy(out, rows)
	return out
}

func (m *MemStorage) UpdateBotGuild(botID, guildID string, fn func(*types.BotGuild)) (*types.BotGuild, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.guilds[botID]
	for i := range rows {
		if rows[i].GuildID == guildID {
			fn(&rows[i])
			m.guilds[botID] = rows
			g := rows[i]
			return &g, true
		}
	}
	return nil, false
}

func (m *MemStorage) DeleteBotGuild(botID, guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.guilds[botID]
	for i := range rows {
		if rows[i].GuildID == guildID {
			m.guilds[botID] = append(rows[:i], rows[i+1:]...)
			return true
		}
	}
	return false
}

// PutBotStats replaces the snapshot for the identity. No history is kept.
func (m *MemStorage) PutBotStats(stats types.BotStats) types.BotStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats.ID = m.nextSeq()
	stats.RecordedAt = time.Now()
	m.stats[stats.BotID] = stats
	return stats
}

func (m *MemStorage) GetLatestBotStats(botID string) (*types.BotStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[botID]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (m *MemStorage) CreateChatMessage(msg types.ChatMessage) types.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextSeq()
	msg.Timestamp = time.Now()
	m.chat[msg.BotID] = append(m.chat[msg.BotID], msg)
	return msg
}

// GetChatMessages returns up to limit of the most recent messages, oldest
// first, so the chat panel renders in reading order.
func (m *MemStorage) GetChatMessages(botID string, limit int) []types.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.chat[botID]
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	out := make([]types.ChatMessage, len(rows))
	copy(out, rows)
	return out
}
