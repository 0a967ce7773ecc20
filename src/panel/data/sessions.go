package data

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "sess:"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SessionStore tracks which issued token ids are still bound to a bot
// identity. Revoking an id (on disconnect) invalidates every request made
// with that token, which is what unbinds the HTTP session.
type SessionStore interface {
	Bind(ctx context.Context, tokenID, botID string, ttl time.Duration) error
	Lookup(ctx context.Context, tokenID string) (string, bool)
	Revoke(ctx context.Context, tokenID string) error
}

// RedisSessions keeps bindings in Redis so they survive a panel restart.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func (s *RedisSessions) Bind(ctx context.Context, tokenID, botID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionPrefix+tokenID, botID, ttl).Err()
}

func (s *RedisSessions) Lookup(ctx context.Context, tokenID string) (string, bool) {
	botID, err := s.rdb.Get(ctx, sessionPrefix+tokenID).Result()
	if err != nil {
		return "", false
	}
	return botID, true
}

func (s *RedisSessions) Revoke(ctx context.Context, tokenID string) error {
	return s.rdb.Del(ctx, sessionPrefix+tokenID).Err()
}

// MemorySessions is the default binding store when no Redis is configured.
type MemorySessions struct {
	mu      sync.Mutex
	entries map[string]memorySession
}

type memorySession struct {
	botID   string
	expires time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{entries: make(map[string]memorySession)}
}

func (s *MemorySessions) Bind(_ context.Context, tokenID, botID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenID] = memorySession{botID: botID, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemorySessions) Lookup(_ context.Context, tokenID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[tokenID]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, tokenID)
		return "", false
	}
	return e.botID, true
}

func (s *MemorySessions) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenID)
	return nil
}
