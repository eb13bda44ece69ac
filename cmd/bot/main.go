package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/mamagarobonomon/goodgains-bot/internal/api"
	"github.com/mamagarobonomon/goodgains-bot/internal/betting"
	"github.com/mamagarobonomon/goodgains-bot/internal/commands"
	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/gsi"
	"github.com/mamagarobonomon/goodgains-bot/internal/notify"
	"github.com/mamagarobonomon/goodgains-bot/internal/steamapi"
	"github.com/mamagarobonomon/goodgains-bot/internal/tracker"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
	"github.com/mamagarobonomon/goodgains-bot/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration: ", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer zlog.Sync()

	db, err := database.New(cfg.Database)
	if err != nil {
		zlog.Fatalw("database", "error", err)
	}
	defer db.Close()

	// Create Discord Session
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		zlog.Fatalw("discord session", "error", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	notifier := notify.New(dg, cfg.LogChannelID, zlog)
	notifier.Start(ctx)

	steam := steamapi.NewClient(cfg.SteamAPIKey, cfg.Detection.APIRequestsPerMin, zlog)

	store := tracker.NewStore(db, zlog)
	if err := store.ReloadCache(); err != nil {
		zlog.Fatalw("reload tracked matches", "error", err)
	}

	rec := tracker.NewReconciler(store, db, notifier, cfg.Detection.ConfidenceThreshold, zlog)
	resolver := betting.NewResolver(db, notifier, zlog)
	rec.SetRetireHook(func(matchID string) {
		sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := resolver.SettleMatch(sctx, matchID); err != nil {
			zlog.Errorw("settle on retire", "match", matchID, "error", err)
		}
	})

	ledger := betting.NewLedger(db, cfg.Betting, zlog)
	scheduler := tracker.NewScheduler(db, store, rec, steam, resolver, cfg.Detection, zlog)
	processor := gsi.NewProcessor(db, store, rec, resolver, zlog)

	server := api.NewServer(cfg.APIPort, processor, steam, zlog)
	server.Start()

	if err := dg.Open(); err != nil {
		zlog.Fatalw("discord connection", "error", err)
	}
	defer dg.Close()

	handler := commands.NewHandler(db, steam, store, rec, scheduler, ledger, resolver, cfg, zlog)
	if err := handler.Register(dg); err != nil {
		zlog.Fatalw("register commands", "error", err)
	}

	scheduler.Start(ctx)
	zlog.Infow("bot running", "env", cfg.Env)

	<-ctx.Done()
	zlog.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warnw("api shutdown", "error", err)
	}
}
