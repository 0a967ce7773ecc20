package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	JWTSecret         string
	MySQLDSN          string
	RedisURL          string
	AllowedOrigins    []string
	SessionTTL        time.Duration
	StatsInterval     time.Duration
	BroadcastInterval time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getseconds(key string, def int) time.Duration {
	n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func Load() Config {
	ttlHours, err := strconv.Atoi(getenv("SESSION_TTL_HOURS", "24"))
	if err != nil || ttlHours <= 0 {
		ttlHours = 24
	}
	return Config{
		Port:              getenv("PORT", "8080"),
		JWTSecret:         getenv("JWT_SECRET", "dev-secret-change-me"),
		MySQLDSN:          os.Getenv("MYSQL_DSN"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AllowedOrigins:    strings.Split(getenv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		SessionTTL:        time.Duration(ttlHours) * time.Hour,
		StatsInterval:     getseconds("STATS_INTERVAL", 30),
		BroadcastInterval: getseconds("BROADCAST_INTERVAL", 5),
	}
}
