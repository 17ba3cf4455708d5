package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactsBot/internal/birthday"
	"contactsBot/internal/bot"
	"contactsBot/internal/config"
	"contactsBot/internal/reminder"
	"contactsBot/internal/scheduler"
	"contactsBot/internal/store"
	"contactsBot/internal/telegram"
)

// reminderRunTimeout bounds one batch so a hung store cannot stall the next tick.
const reminderRunTimeout = 10 * time.Minute

func main() {
	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	// load .env file and the environment
	cfg, err := config.Load(logLevel)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open contact store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	//bot settings
	b, err := telegram.NewBot(telegram.Settings{Token: cfg.Token, PollTimeout: cfg.PollTimeout})
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	messenger := telegram.NewMessenger(b)
	clock := birthday.RealClock{Location: cfg.Location}

	router := bot.Build(bot.Deps{
		Store:          st,
		Messenger:      messenger,
		Clock:          clock,
		CacheTTL:       cfg.ListCacheTTL,
		SessionIdleTTL: cfg.SessionIdleTTL,
	})
	telegram.Register(b, router, bot.Commands)

	job := reminder.NewJob(st, messenger, clock)
	sched := scheduler.New(cfg.Location)
	err = sched.AddJob("birthday-reminders", cfg.ReminderSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, reminderRunTimeout)
		defer cancel()
		if _, err := job.Run(runCtx); err != nil {
			slog.Error("Birthday reminder run failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("Failed to schedule cron job", "error", err)
		os.Exit(1)
	}

	slog.Info("Bot is starting", "timezone", cfg.Location.String(), "persistent", cfg.DSN != "")
	sched.Start()
	go b.Start()

	<-ctx.Done()
	slog.Info("Shutting down")
	b.Stop()
	sched.Stop()
}

// openStore connects to Postgres when a DSN is configured and falls back to process memory otherwise.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DSN == "" {
		slog.Warn("DB_DSN not set, contacts are kept in memory and lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	pg, err := store.NewPostgresStore(ctx, store.WithPostgresDSN(cfg.DSN))
	if err != nil {
		return nil, nil, err
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}
