package storage

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/botpanel/botpanel/src/panel/types"
)

// GormStorage persists the panel records in MySQL. It mirrors MemStorage
// semantics exactly; read errors fall back to empty results so a flaky
// database degrades the dashboard instead of crashing it.
type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if err := db.AutoMigrate(
		&types.BotSession{},
		&types.BotMessage{},
		&types.BotGuild{},
		&types.BotStats{},
		&types.ChatMessage{},
	); err != nil {
		return nil, err
	}
	return &GormStorage{db: db}, nil
}

func (g *GormStorage) GetBotSession(botID string) (*types.BotSession, bool) {
	var s types.BotSession
	if err := g.db.First(&s, "bot_id = ?", botID).Error; err != nil {
		return nil, false
	}
	return &s, true
}

func (g *GormStorage) CreateBotSession(session types.BotSession) types.BotSession {
	// One row per identity: a fresh authentication replaces the old record.
	g.db.Where("bot_id = ?", session.BotID).Delete(&types.BotSession{})
	session.ID = 0
	session.CreatedAt = time.Now()
	session.LastActiveAt = session.CreatedAt
	if err := g.db.Create(&session).Error; err != nil {
		log.Printf("storage: create session %s: %v", session.BotID, err)
	}
	return session
}

func (g *GormStorage) UpdateBotSession(botID string, fn func(*types.BotSession)) (*types.BotSession, bool) {
	var s types.BotSession
	if err := g.db.First(&s, "bot_id = ?", botID).Error; err != nil {
		return nil, false
	}
	fn(&s)
	s.LastActiveAt = time.Now()
	if err := g.db.Save(&s).Error; err != nil {
		log.Printf("storage: update session %s: %v", botID, err)
		return nil, false
	}
	return &s, true
}

func (g *GormStorage) DeleteBotSession(botID string) bool {
	res := g.db.Where("bot_id = ?", botID).Delete(&types.BotSession{})
	return res.Error == nil && res.RowsAffected > 0
}

func (g *GormStorage) CreateBotMessage(msg types.BotMessage) types.BotMessage {
	msg.ID = 0
	msg.SentAt = time.Now()
	if err := g.db.Create(&msg).Error; err != nil {
		log.Printf("storage: log message for %s: %v", msg.BotID, err)
	}
	return msg
}

func (g *GormStorage) GetBotMessages(botID string, limit int) []types.BotMessage {
	var out []types.BotMessage
	q := g.db.Where("bot_id = ?", botID).Order("sent_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		log.Printf("storage: list messages for %s: %v", botID, err)
	}
	return out
}

func (g *GormStorage) UpsertBotGuild(guild types.BotGuild) types.BotGuild {
	var existing types.BotGuild
	err := g.db.First(&existing, "bot_id = ? AND guild_id = ?", guild.BotID, guild.GuildID).Error
	if err == nil {
		guild.ID = existing.ID
		guild.JoinedAt = existing.JoinedAt
		if err := g.db.Save(&guild).Error; err != nil {
			log.Printf("storage: update guild %s/%s: %v", guild.BotID, guild.GuildID, err)
		}
		return guild
	}
	guild.ID = 0
	guild.JoinedAt = time.Now()
	if err := g.db.Create(&guild).Error; err != nil {
		log.Printf("storage: create guild %s/%s: %v", guild.BotID, guild.GuildID, err)
	}
	return guild
}

func (g *GormStorage) GetBotGuilds(botID string) []types.BotGuild {
	var out []types.BotGuild
	if err := g.db.Where("bot_id = ?", botID).Order("joined_at ASC").Find(&out).Error; err != nil {
		log.Printf("storage: list guilds for %s: %v", botID, err)
	}
	return out
}

func (g *GormStorage) UpdateBotGuild(botID, guildID string, fn func(*types.BotGuild)) (*types.BotGuild, bool) {
	var row types.BotGuild
	if err := g.db.First(&row, "bot_id = ? AND guild_id = ?", botID, guildID).Error; err != nil {
		return nil, false
	}
	fn(&row)
	if err := g.db.Save(&row).Error; err != nil {
		log.Printf("storage: update guild %s/%s: %v", botID, guildID, err)
		return nil, false
	}
	return &row, true
}

func (g *GormStorage) DeleteBotGuild(botID, guildID string) bool {
	res := g.db.Where("bot_id = ? AND guild_id = ?", botID, guildID).Delete(&types.BotGuild{})
	return res.Error == nil && res.RowsAffected > 0
}

func (g *GormStorage) PutBotStats(stats types.BotStats) types.BotStats {
	g.db.Where("bot_id = ?", stats.BotID).Delete(&types.BotStats{})
	stats.ID = 0
	stats.RecordedAt = time.Now()
	if err := g.db.Create(&stats).Error; err != nil {
		log.Printf("storage: record stats for %s: %v", stats.BotID, err)
	}
	return stats
}

func (g *GormStorage) GetLatestBotStats(botID string) (*types.BotStats, bool) {
	var s types.BotStats
	if err := g.db.First(&s, "bot_id = ?", botID).Error; err != nil {
		return nil, false
	}
	return &s, true
}

func (g *GormStorage) CreateChatMessage(msg types.ChatMessage) types.ChatMessage {
	msg.ID = 0
	msg.Timestamp = time.Now()
	if err := g.db.Create(&msg).Error; err != nil {
		log.Printf("storage: append chat for %s: %v", msg.BotID, err)
	}
	return msg
}

func (g *GormStorage) GetChatMessages(botID string, limit int) []types.ChatMessage {
	var out []types.ChatMessage
	q := g.db.Where("bot_id = ?", botID).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		log.Printf("storage: list chat for %s: %v", botID, err)
	}
	// Fetched newest-first for the limit; flip to reading order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
