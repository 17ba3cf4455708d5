package models

import (
	"maps"
	"time"

	"github.com/uptrace/bun"
)

// UnknownYear replaces the year part of a birthday when only day and month are known.
const UnknownYear = "????"

// Contact is one saved contact. Birthday is DD.MM.YYYY or DD.MM.????, nil when not provided.
type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID          string            `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID      int64             `bun:"user_id,notnull"`
	Name        string            `bun:"name,notnull"`
	Group       string            `bun:"group_name"`
	Birthday    *string           `bun:"birthday"`
	ExtraFields map[string]string `bun:"extra_fields,type:jsonb,nullzero"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Clone returns a copy that shares no mutable state with c.
func (c Contact) Clone() Contact {
	out := c
	if c.Birthday != nil {
		b := *c.Birthday
		out.Birthday = &b
	}
	if c.ExtraFields != nil {
		out.ExtraFields = maps.Clone(c.ExtraFields)
	}
	return out
}

// per-user reminder offsets, keyed by offset name (same_day, week_before, ...)
type ReminderSettings struct {
	bun.BaseModel `bun:"table:reminder_settings,alias:rs"`

	UserID    int64           `bun:"user_id,pk"`
	Offsets   map[string]bool `bun:"offsets,type:jsonb,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Enabled reports whether at least one offset is switched on.
func (s ReminderSettings) Enabled() bool {
	for _, on := range s.Offsets {
		if on {
			return true
		}
	}
	return false
}
