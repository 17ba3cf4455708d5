// Package reminder sends each user one daily message about the upcoming birthdays of their
// contacts and manages the per-user choice of reminder offsets.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contactsBot/internal/birthday"
	"contactsBot/internal/chat"
	"contactsBot/internal/store"
)

// Report summarises one batch run.
type Report struct {
	Users    int
	Notified int
	Blocked  int
	Failed   int
}

// Job is the daily reminder batch.
type Job struct {
	store store.Store
	msg   chat.Messenger
	clock birthday.Clock
}

func NewJob(st store.Store, m chat.Messenger, clock birthday.Clock) *Job {
	return &Job{store: st, msg: m, clock: clock}
}

// Run checks every known user concurrently and waits for all of them. A failure for one user
// is logged and never stops the others; only failing to enumerate users fails the run.
func (j *Job) Run(ctx context.Context) (Report, error) {
	today := j.clock.Now()
	slog.Info("birthday check started", "date", today.Format("2006-01-02"))

	users, err := j.store.ListUsers(ctx)
	if err != nil {
		slog.Error("birthday check could not list users", "error", err)
		return Report{}, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		slog.Info("birthday check found no users")
		return Report{}, nil
	}

	var notified, blocked, failed atomic.Int64
	var g errgroup.Group
	for _, userID := range users {
		g.Go(func() error {
			sent, err := j.remind(ctx, userID, today)
			switch {
			case errors.Is(err, chat.ErrRecipientBlocked):
				blocked.Add(1)
				slog.Warn("user blocked the bot, skipping", "user_id", userID)
			case err != nil:
				failed.Add(1)
				slog.Error("birthday check failed for user", "error", err, "user_id", userID)
			case sent:
				notified.Add(1)
				slog.Info("birthday reminder sent", "user_id", userID)
			}
			return nil
		})
	}
	_ = g.Wait()

	r := Report{
		Users:    len(users),
		Notified: int(notified.Load()),
		Blocked:  int(blocked.Load()),
		Failed:   int(failed.Load()),
	}
	slog.Info("birthday check finished", "users", r.Users, "notified", r.Notified, "blocked", r.Blocked, "failed", r.Failed)
	return r, nil
}

// remind sends userID their reminder for today, if any, and reports whether one was sent.
func (j *Job) remind(ctx context.Context, userID int64, today time.Time) (bool, error) {
	settings, found, err := j.store.GetReminderSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found || !settings.Enabled() {
		return false, nil
	}

	contacts, err := j.store.ListAll(ctx, userID)
	if err != nil {
		return false, err
	}
	text := Compose(Match(today, contacts, settings.Offsets))
	if text == "" {
		return false, nil
	}
	if _, err := j.msg.Send(ctx, userID, text, nil); err != nil {
		return false, err
	}
	return true, nil
}
