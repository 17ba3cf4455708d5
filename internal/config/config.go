// Package config reads the bot's settings from the environment, after an optional .env file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DefaultTimezone         = "Europe/Kyiv"
	DefaultReminderSchedule = "0 7 * * *"
	DefaultPollTimeout      = 10 * time.Second
	DefaultListCacheTTL     = 20 * time.Second
)

// kyivFallback is used when the host has no tz database.
var kyivFallback = time.FixedZone("EET", 2*3600)

// ErrNoToken is returned when TOKEN is not set.
var ErrNoToken = errors.New("TOKEN is not set")

type Config struct {
	Token            string
	DSN              string
	PollTimeout      time.Duration
	Location         *time.Location
	ReminderSchedule string
	ListCacheTTL     time.Duration
	SessionIdleTTL   time.Duration
	LogLevel         slog.Level
}

// Load reads .env when present and then the process environment. Malformed optional values
// fall back to their defaults with a warning. When lv is not nil it receives LOG_LEVEL before
// the remaining values are parsed, so those warnings already respect it.
func Load(lv *slog.LevelVar) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}
	l := level()
	if lv != nil {
		lv.Set(l)
	}
	return fromEnv(l)
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	return fromEnv(level())
}

func fromEnv(l slog.Level) (Config, error) {
	cfg := Config{
		Token:            strings.TrimSpace(os.Getenv("TOKEN")),
		DSN:              strings.TrimSpace(os.Getenv("DB_DSN")),
		PollTimeout:      duration("POLL_TIMEOUT", DefaultPollTimeout),
		Location:         location(),
		ReminderSchedule: schedule(),
		ListCacheTTL:     duration("LIST_CACHE_TTL", DefaultListCacheTTL),
		SessionIdleTTL:   duration("SESSION_IDLE_TTL", 0),
		LogLevel:         l,
	}
	if cfg.Token == "" {
		return cfg, ErrNoToken
	}
	return cfg, nil
}

func duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func location() *time.Location {
	name := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	slog.Warn("could not load timezone", "timezone", name, "error", err)
	if loc, err = time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	// if the server does not have TZ data, fallback
	return kyivFallback
}

func schedule() string {
	expr := strings.TrimSpace(os.Getenv("REMINDER_SCHEDULE"))
	if expr == "" {
		return DefaultReminderSchedule
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		slog.Warn("invalid reminder schedule, using default", "value", expr, "error", err)
		return DefaultReminderSchedule
	}
	return expr
}

func level() slog.Level {
	var l slog.Level
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return slog.LevelInfo
	}
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		slog.Warn("invalid log level, using info", "value", raw)
		return slog.LevelInfo
	}
	return l
}
