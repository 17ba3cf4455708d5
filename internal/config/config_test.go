package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{"TOKEN", "DB_DSN", "POLL_TIMEOUT", "TIMEZONE", "REMINDER_SCHEDULE", "LIST_CACHE_TTL", "SESSION_IDLE_TTL", "LOG_LEVEL"} {
		t.Setenv(k, kv[k])
	}
}

func TestFromEnvDefaults(t *testing.T) {
	setEnv(t, map[string]string{"TOKEN": "123:abc"})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.Empty(t, cfg.DSN)
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
	assert.Equal(t, DefaultReminderSchedule, cfg.ReminderSchedule)
	assert.Equal(t, DefaultListCacheTTL, cfg.ListCacheTTL)
	assert.Zero(t, cfg.SessionIdleTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.NotNil(t, cfg.Location)
}

func TestFromEnvOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"TOKEN":             "t",
		"DB_DSN":            "postgres://u:p@localhost:5432/contacts?sslmode=disable",
		"POLL_TIMEOUT":      "30s",
		"TIMEZONE":          "UTC",
		"REMINDER_SCHEDULE": "30 8 * * 1-5",
		"LIST_CACHE_TTL":    "1m",
		"SESSION_IDLE_TTL":  "2h",
		"LOG_LEVEL":         "debug",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/contacts?sslmode=disable", cfg.DSN)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "30 8 * * 1-5", cfg.ReminderSchedule)
	assert.Equal(t, time.Minute, cfg.ListCacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	setEnv(t, map[string]string{
		"TOKEN":             "t",
		"POLL_TIMEOUT":      "soon",
		"TIMEZONE":          "Mars/Olympus",
		"REMINDER_SCHEDULE": "every day",
		"LIST_CACHE_TTL":    "-5s",
		"LOG_LEVEL":         "loud",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
	assert.Equal(t, DefaultReminderSchedule, cfg.ReminderSchedule)
	assert.Equal(t, DefaultListCacheTTL, cfg.ListCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.NotEqual(t, "Mars/Olympus", cfg.Location.String())
}

func TestFromEnvRequiresToken(t *testing.T) {
	setEnv(t, map[string]string{})
	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrNoToken)
}

func captureLog(t *testing.T, lv *slog.LevelVar) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: lv})))
	return &buf
}

func TestLoadAppliesLogLevelBeforeWarnings(t *testing.T) {
	setEnv(t, map[string]string{"TOKEN": "t", "POLL_TIMEOUT": "soon", "LOG_LEVEL": "error"})
	lv := new(slog.LevelVar)
	buf := captureLog(t, lv)

	cfg, err := Load(lv)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, lv.Level())
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.NotContains(t, buf.String(), "invalid duration", "warnings below LOG_LEVEL are dropped")
}

func TestLoadWarnsThroughInstalledHandler(t *testing.T) {
	setEnv(t, map[string]string{"TOKEN": "t", "POLL_TIMEOUT": "soon", "LOG_LEVEL": "debug"})
	lv := new(slog.LevelVar)
	buf := captureLog(t, lv)

	_, err := Load(lv)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lv.Level())
	assert.Contains(t, buf.String(), "level=WARN msg=\"invalid duration, using default\" key=POLL_TIMEOUT")
}
