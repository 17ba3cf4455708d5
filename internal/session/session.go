// Package session keeps ephemeral per-user flow state in process memory.
//
// Each conversational flow owns its own Store, so clearing one flow never touches another.
// Nothing here is persisted; a restart forgets every in-progress flow.
package session

import (
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type options struct {
	idle time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithIdleTimeout makes entries untouched for d read as absent. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idle = d
	}
}

// WithClock overrides the time source used for idle expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type entry[T any] struct {
	value   T
	touched time.Time
}

// Store maps a user id to the state of one flow.
type Store[T any] struct {
	name    string
	entries *xsync.MapOf[int64, entry[T]]
	idle    time.Duration
	now     func() time.Time
}

// New creates an empty store; name only appears in logs.
func New[T any](name string, opts ...Option) *Store[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:    name,
		entries: xsync.NewMapOf[int64, entry[T]](),
		idle:    o.idle,
		now:     o.now,
	}
}

// Get returns the user's state, if any.
func (s *Store[T]) Get(userID int64) (T, bool) {
	e, ok := s.entries.Load(userID)
	if !ok {
		var zero T
		return zero, false
	}
	if s.idle > 0 && s.now().Sub(e.touched) >= s.idle {
		s.entries.Delete(userID)
		slog.Debug("session expired", "flow", s.name, "user_id", userID)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set replaces the user's state.
func (s *Store[T]) Set(userID int64, v T) {
	s.entries.Store(userID, entry[T]{value: v, touched: s.now()})
}

// Clear removes the user's state and reports whether there was one.
func (s *Store[T]) Clear(userID int64) bool {
	_, existed := s.entries.LoadAndDelete(userID)
	return existed
}

// size returns the number of users holding state, expired entries included.
func (s *Store[T]) size() int {
	return s.entries.Size()
}
