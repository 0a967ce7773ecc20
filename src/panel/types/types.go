package types

import "time"

// Bot sessions (one per bot identity; deactivated, never deleted)
type BotSession struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	BotID            string    `gorm:"size:64;uniqueIndex;not null" json:"botId"`
	BotToken         string    `gorm:"size:128;not null" json:"-"`
	BotUsername      string    `gorm:"size:64;not null" json:"botUsername"`
	BotDiscriminator string    `gorm:"size:8" json:"botDiscriminator"`
	IsActive         bool      `gorm:"default:true" json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActiveAt     time.Time `json:"lastActiveAt"`
}

// Outbound message log, failures included
type BotMessage struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	BotID        string    `gorm:"size:64;index;not null" json:"botId"`
	TargetType   string    `gorm:"size:16;not null" json:"targetType"` // channel or user
	TargetID     string    `gorm:"size:64;not null" json:"targetId"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Success      bool      `gorm:"default:false" json:"success"`
	ErrorMessage string    `gorm:"size:512" json:"errorMessage,omitempty"`
	SentAt       time.Time `json:"sentAt"`
}

// Guild roster; IsActive=false marks departure without losing history
type BotGuild struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	BotID       string    `gorm:"size:64;index:idx_bot_guild,unique;not null" json:"botId"`
	GuildID     string    `gorm:"size:64;index:idx_bot_guild,unique;not null" json:"guildId"`
	GuildName   string    `gorm:"size:128;not null" json:"guildName"`
	GuildIcon   string    `gorm:"size:128" json:"guildIcon,omitempty"`
	MemberCount int       `gorm:"default:0" json:"memberCount"`
	Permissions string    `gorm:"size:32" json:"permissions,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"isActive"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Latest stats snapshot; overwritten every collection tick
type BotStats struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	BotID       string    `gorm:"size:64;uniqueIndex;not null" json:"botId"`
	Ping        int       `json:"ping"`
	Uptime      int       `json:"uptime"`      // seconds
	MemoryUsage int       `json:"memoryUsage"` // MB
	GuildCount  int       `json:"guildCount"`
	UserCount   int       `json:"userCount"`
	Status      string    `gorm:"size:16;default:online" json:"status"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Live chat log for the dashboard chat panel
type ChatMessage struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	BotID     string    `gorm:"size:64;index;not null" json:"botId"`
	UserID    string    `gorm:"size:64;not null" json:"userId"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsFromBot bool      `gorm:"default:false" json:"isFromBot"`
	Timestamp time.Time `json:"timestamp"`
}
