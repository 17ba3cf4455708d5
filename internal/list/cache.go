package list

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"contactsBot/internal/birthday"
	"contactsBot/internal/contact/models"
	"contactsBot/internal/store"
)

// DefaultCacheTTL is how long a snapshot is served before the store is read again.
const DefaultCacheTTL = 20 * time.Second

type snapshot struct {
	contacts []models.Contact
	fetched  time.Time
}

// Cache holds one contact snapshot per user. Concurrent misses for the same user may
// both hit the store; the later write wins.
type Cache struct {
	store   store.Store
	clock   birthday.Clock
	ttl     time.Duration
	entries *xsync.MapOf[int64, snapshot]
}

// NewCache creates a cache in front of st. A non-positive ttl selects DefaultCacheTTL.
func NewCache(st store.Store, clock birthday.Clock, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:   st,
		clock:   clock,
		ttl:     ttl,
		entries: xsync.NewMapOf[int64, snapshot](),
	}
}

// Load returns the user's contacts, from the snapshot when it is younger than the TTL and
// bypass is false. When the store read fails, any snapshot is returned regardless of age.
// The returned slice is shared and must not be modified.
func (c *Cache) Load(ctx context.Context, userID int64, bypass bool) ([]models.Contact, error) {
	now := c.clock.Now()
	cached, ok := c.entries.Load(userID)
	if ok && !bypass && now.Sub(cached.fetched) < c.ttl {
		return cached.contacts, nil
	}

	contacts, err := c.store.ListAll(ctx, userID)
	if err != nil {
		if ok {
			slog.Warn("serving stale contact list", "error", err, "user_id", userID, "age", now.Sub(cached.fetched))
			return cached.contacts, nil
		}
		return nil, err
	}
	c.entries.Store(userID, snapshot{contacts: contacts, fetched: now})
	return contacts, nil
}

// Invalidate drops the user's snapshot.
func (c *Cache) Invalidate(userID int64) {
	c.entries.Delete(userID)
}
