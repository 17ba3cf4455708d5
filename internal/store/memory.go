package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contactsBot/internal/contact/models"
)

const (
	// collectionPrefix names every user collection; the suffix is the user id.
	collectionPrefix = "contacts_user_"
	// settingsRecordID is the reserved record holding reminder settings inside a collection.
	settingsRecordID = "reminders_settings"
)

// record is one document of a collection: either a contact or the settings sentinel.
type record struct {
	contact  models.Contact
	settings map[string]bool
}

type collection map[string]record

// MemoryStore keeps one document collection per user in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]collection
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := applyOptions(opts)
	return &MemoryStore{collections: make(map[string]collection), now: cfg.Now}
}

func collectionName(userID int64) string {
	return collectionPrefix + strconv.FormatInt(userID, 10)
}

func (s *MemoryStore) coll(userID int64, create bool) collection {
	name := collectionName(userID)
	c, ok := s.collections[name]
	if !ok && create {
		c = make(collection)
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Add(ctx context.Context, userID int64, c models.Contact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c = c.Clone()
	c.ID = uuid.NewString()
	c.UserID = userID
	c.CreatedAt = s.now()
	if len(c.ExtraFields) == 0 {
		c.ExtraFields = nil
	}
	s.coll(userID, true)[c.ID] = record{contact: c}
	slog.Debug("MemoryStore Add succeeded", "user_id", userID, "contact_id", c.ID)
	return c.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID int64, id string) (models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.coll(userID, false)[id]
	if !ok || id == settingsRecordID {
		return models.Contact{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return r.contact.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, userID int64, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.coll(userID, false)
	r, ok := coll[id]
	if !ok || id == settingsRecordID {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	c := r.contact.Clone()
	switch {
	case u.Name != nil:
		c.Name = *u.Name
	case u.Group != nil:
		c.Group = *u.Group
	case u.Birthday != nil:
		b := *u.Birthday
		c.Birthday = &b
	case u.ClearBirthday:
		c.Birthday = nil
	case u.SetExtra != nil:
		if c.ExtraFields == nil {
			c.ExtraFields = make(map[string]string)
		}
		c.ExtraFields[u.SetExtra.Key] = u.SetExtra.Value
	case u.DeleteExtra != "":
		delete(c.ExtraFields, u.DeleteExtra)
		if len(c.ExtraFields) == 0 {
			c.ExtraFields = nil
		}
	}
	coll[id] = record{contact: c}
	slog.Debug("MemoryStore Update succeeded", "user_id", userID, "contact_id", id)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.coll(userID, false)
	if _, ok := coll[id]; !ok || id == settingsRecordID {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(coll, id)
	slog.Debug("MemoryStore Delete succeeded", "user_id", userID, "contact_id", id)
	return nil
}

func (s *MemoryStore) QueryByField(ctx context.Context, userID int64, field Field, value string) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for id, r := range s.coll(userID, false) {
		if id == settingsRecordID {
			continue
		}
		var v string
		switch field {
		case FieldName:
			v = r.contact.Name
		case FieldGroup:
			v = r.contact.Group
		default:
			return nil, fmt.Errorf("unsupported query field %q", field)
		}
		if v == value {
			out = append(out, r.contact.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context, userID int64) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.coll(userID, false)
	out := make([]models.Contact, 0, len(coll))
	for id, r := range coll {
		if id == settingsRecordID {
			continue
		}
		out = append(out, r.contact.Clone())
	}
	slices.SortFunc(out, func(a, b models.Contact) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for name := range s.collections {
		suffix, ok := strings.CutPrefix(name, collectionPrefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			slog.Warn("MemoryStore ListUsers skipping malformed collection", "collection", name)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) GetReminderSettings(ctx context.Context, userID int64) (models.ReminderSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.coll(userID, false)[settingsRecordID]
	if !ok {
		return models.ReminderSettings{UserID: userID}, false, nil
	}
	return models.ReminderSettings{UserID: userID, Offsets: maps.Clone(r.settings)}, true, nil
}

func (s *MemoryStore) SaveReminderSettings(ctx context.Context, userID int64, offsets map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coll(userID, true)[settingsRecordID] = record{settings: maps.Clone(offsets)}
	return nil
}
