package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/botpanel/botpanel/src/panel/config"
	"github.com/botpanel/botpanel/src/panel/data"
	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
	"github.com/botpanel/botpanel/src/panel/webserver"
)

func main() {
	cfg := config.Load()

	var store storage.Store
	if cfg.MySQLDSN != "" {
		db := data.MustMySQL(cfg.MySQLDSN)
		gs, err := storage.NewGormStorage(db)
		if err != nil {
			log.Fatalf("storage: migrate: %v", err)
		}
		store = gs
		log.Printf("Using MySQL storage")
	} else {
		store = storage.NewMemStorage()
		log.Printf("Using in-memory storage")
	}

	var sessions data.SessionStore
	if cfg.RedisURL != "" {
		sessions = data.NewRedisSessions(data.MustRedis(cfg.RedisURL))
		log.Printf("Using Redis session store")
	} else {
		sessions = data.NewMemorySessions()
	}

	hub := webserver.NewHub()
	svc := discord.NewService(store, hub, discord.WithStatsInterval(cfg.StatsInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.RunStatsBroadcast(ctx, store, cfg.BroadcastInterval)

	router := webserver.New(cfg, svc, store, sessions, hub)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	svc.Shutdown()
}
