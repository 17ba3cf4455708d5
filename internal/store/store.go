// Package store provides the per-user contact collections used by every flow.
//
// Two backends exist: a Postgres store built on bun, and an in-memory store that keeps one
// collection per user and is used when no DSN is configured and in tests.
package store

import (
	"context"
	"errors"

	"contactsBot/internal/contact/models"
)

// ErrNotFound is returned when a contact does not exist in the user's collection.
var ErrNotFound = errors.New("contact not found")

// Field names a contact attribute that can be queried by exact value.
type Field string

const (
	FieldName  Field = "name"
	FieldGroup Field = "group"
)

// ExtraField is a single key/value pair of a contact's extra fields.
type ExtraField struct {
	Key   string
	Value string
}

// Update describes a single-field mutation of a contact. Exactly one member is expected to be
// set; Validate rejects anything else.
type Update struct {
	Name          *string
	Group         *string
	Birthday      *string
	ClearBirthday bool
	SetExtra      *ExtraField
	DeleteExtra   string
}

// Validate checks that u carries exactly one change.
func (u Update) Validate() error {
	n := 0
	if u.Name != nil {
		n++
	}
	if u.Group != nil {
		n++
	}
	if u.Birthday != nil {
		n++
	}
	if u.ClearBirthday {
		n++
	}
	if u.SetExtra != nil {
		n++
	}
	if u.DeleteExtra != "" {
		n++
	}
	if n != 1 {
		return errors.New("update must change exactly one field")
	}
	return nil
}

// Store is the contact store adapter. All methods are scoped to a single user's collection,
// except ListUsers which enumerates the known collections for the reminder batch.
type Store interface {
	Add(ctx context.Context, userID int64, c models.Contact) (string, error)
	Get(ctx context.Context, userID int64, id string) (models.Contact, error)
	Update(ctx context.Context, userID int64, id string, u Update) error
	Delete(ctx context.Context, userID int64, id string) error
	QueryByField(ctx context.Context, userID int64, field Field, value string) ([]models.Contact, error)
	ListAll(ctx context.Context, userID int64) ([]models.Contact, error)
	ListUsers(ctx context.Context) ([]int64, error)

	// GetReminderSettings reports found=false when the user never saved settings.
	GetReminderSettings(ctx context.Context, userID int64) (settings models.ReminderSettings, found bool, err error)
	SaveReminderSettings(ctx context.Context, userID int64, offsets map[string]bool) error
}
