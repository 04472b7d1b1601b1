// barbersmap — Telegram bot connecting barbers and clients.
//
// Barbers build a profile through a guided interview (description, 5 work
// photos, city, metro when the city has one, experience, specialization,
// per-service prices, contacts) and publish it for moderation. Clients search
// the catalogue by city, metro, budget and specialization.
//
// Drafts live in Redis, the committed catalogue in PostgreSQL. A successful
// commit publishes EVENT_PROFILE_SUBMITTED to Redis for the moderation
// pipeline.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/config"
	"github.com/PalmaOG/barbersmap/internal/db"
	"github.com/PalmaOG/barbersmap/internal/draft"
	"github.com/PalmaOG/barbersmap/internal/logging"
	"github.com/PalmaOG/barbersmap/internal/sweeper"
	"github.com/PalmaOG/barbersmap/internal/transport/telegram"
	"github.com/PalmaOG/barbersmap/internal/wizard"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[barbersmap] Config error: %v", err)
	}

	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[barbersmap] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[barbersmap] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[barbersmap] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[barbersmap] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[barbersmap] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[barbersmap] Redis connected ✓")

	// ── Core ─────────────────────────────────────────────────────────────────
	ttl := time.Duration(cfg.DraftTTLHours) * time.Hour
	drafts := draft.NewRedisStore(rdb, ttl)
	cat := catalog.NewPostgresStore(pool)
	machine := wizard.New(drafts, cat, rdb)

	sw := sweeper.New(drafts, ttl, cfg.SweepIntervalHours)
	if err := sw.Start(ctx); err != nil {
		log.Fatalf("[barbersmap] Sweeper: %v", err)
	}
	defer sw.Stop()

	// ── Telegram ─────────────────────────────────────────────────────────────
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("[barbersmap] Telegram: %v", err)
	}
	dispatcher := telegram.NewDispatcher(api, telegram.NewBotMessenger(api), machine, cat)

	go func() {
		log.Printf("[barbersmap] v%s polling as @%s", version, api.Self.UserName)
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("[barbersmap] Dispatcher error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[barbersmap] Shutting down…")
	cancel()
	log.Println("[barbersmap] Stopped.")
}
