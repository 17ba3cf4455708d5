package bot

import (
	"time"

	"contactsBot/internal/birthday"
	"contactsBot/internal/chat"
	"contactsBot/internal/edit"
	"contactsBot/internal/list"
	"contactsBot/internal/reminder"
	"contactsBot/internal/session"
	"contactsBot/internal/store"
	"contactsBot/internal/wizard"
)

// Deps are the collaborators the flows share.
type Deps struct {
	Store     store.Store
	Messenger chat.Messenger
	Clock     birthday.Clock
	// CacheTTL is the list snapshot lifetime; zero selects the default.
	CacheTTL time.Duration
	// SessionIdleTTL expires untouched flow state; zero keeps it until the flow ends.
	SessionIdleTTL time.Duration
}

// Build wires every flow with its own session store. Creation and edit writes drop the
// user's list snapshot so the next list shows them.
func Build(d Deps) *Router {
	opts := []session.Option{
		session.WithIdleTimeout(d.SessionIdleTTL),
		session.WithClock(d.Clock.Now),
	}
	cache := list.NewCache(d.Store, d.Clock, d.CacheTTL)

	w := wizard.New(d.Store, d.Messenger, d.Clock, session.New[wizard.State]("create", opts...), cache.Invalidate)
	e := edit.New(d.Store, d.Messenger, d.Clock, session.New[edit.State]("edit", opts...), cache.Invalidate)
	l := list.New(cache, d.Store, d.Messenger,
		session.New[list.View]("list", opts...),
		session.New[list.PendingDelete]("delete", opts...))
	s := reminder.NewSettings(d.Store, d.Messenger)

	return NewRouter(d.Messenger, session.NewLocker(), w, e, l, s)
}
