// Package contact holds the rules shared by every flow that writes contacts.
package contact

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"contactsBot/internal/store"
)

const (
	// MaxNameLenCreate bounds names entered in the creation wizard.
	MaxNameLenCreate = 32
	// MaxNameLenEdit bounds names entered when renaming.
	MaxNameLenEdit = 64
	// MaxFieldKeyLen bounds extra field names.
	MaxFieldKeyLen = 64
)

var (
	ErrNameEmpty   = errors.New("name is empty")
	ErrNameTooLong = errors.New("name is too long")
	ErrNameTaken   = errors.New("name already taken")
)

// Group is one of the fixed contact groups offered as choices.
type Group struct {
	Key   string
	Label string
	Icon  string
}

// Groups lists the fixed groups in display order.
var Groups = []Group{
	{Key: "friends", Label: "Friends", Icon: "👫"},
	{Key: "family", Label: "Family", Icon: "🏠"},
	{Key: "colleagues", Label: "Colleagues", Icon: "💼"},
	{Key: "other", Label: "Other", Icon: "📁"},
}

// DefaultGroup is used for contacts stored without a group.
const DefaultGroup = "Other"

// GroupByKey resolves a group choice.
func GroupByKey(key string) (Group, bool) {
	for _, g := range Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// ValidateText checks that s is non-empty and at most max characters long.
func ValidateText(s string, max int) error {
	if s == "" {
		return ErrNameEmpty
	}
	if utf8.RuneCountInString(s) > max {
		return ErrNameTooLong
	}
	return nil
}

// CheckNameFree returns ErrNameTaken when another contact of the user already uses name.
// The contact with id exceptID is ignored, so renaming a contact to its own name passes.
// Names are compared case-sensitively.
func CheckNameFree(ctx context.Context, st store.Store, userID int64, name, exceptID string) error {
	matches, err := st.QueryByField(ctx, userID, store.FieldName, name)
	if err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	for _, c := range matches {
		if c.ID != exceptID {
			return ErrNameTaken
		}
	}
	return nil
}
