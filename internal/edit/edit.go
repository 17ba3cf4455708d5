// Package edit implements in-place editing of an existing contact, one field per interaction.
//
// Every change is written to the store immediately and the contact card is then re-read from
// the store, never from a cache, so the user always sees the stored result.
package edit

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"contactsBot/internal/birthday"
	"contactsBot/internal/chat"
	"contactsBot/internal/contact"
	"contactsBot/internal/session"
	"contactsBot/internal/store"
)

// ErrStaleToken is returned when a choice references a token from a menu that is no longer current.
var ErrStaleToken = errors.New("extra field token is not part of the current menu")

// Step is the pending edit of a user.
type Step string

const (
	StepIdle          Step = "idle"
	StepName          Step = "await_name"
	StepBirthday      Step = "await_birthday"
	StepNewExtraName  Step = "await_new_extra_name"
	StepNewExtraValue Step = "await_new_extra_value"
	StepEditExtra     Step = "await_edit_extra_value"
)

// ClearCommand removes the birthday when sent during a birthday edit.
const ClearCommand = "/clear"

// State addresses one contact and at most one pending edit on it.
type State struct {
	Step             Step
	ContactID        string
	CurrentKey       string
	PendingExtraName string
	// TokenMap maps the tokens of the last rendered extras menu to real field names.
	TokenMap map[string]string
}

const (
	msgStaleMenu = "❌ State error: this menu is out of date. Go back to the contact and open \"Extra fields\" again."
	msgNotFound  = "⚠️ Contact not found or already deleted."
	msgSaveError = "❌ Database error. The change was not saved, please try again later."
)

// Editor runs the edit flow for every user.
type Editor struct {
	store    store.Store
	msg      chat.Messenger
	clock    birthday.Clock
	sessions *session.Store[State]
	onWrite  func(userID int64)
}

// New creates an editor. onWrite, when not nil, runs after every successful write.
func New(st store.Store, m chat.Messenger, clock birthday.Clock, sessions *session.Store[State], onWrite func(userID int64)) *Editor {
	return &Editor{store: st, msg: m, clock: clock, sessions: sessions, onWrite: onWrite}
}

// Active reports whether a text edit is pending for the user.
func (e *Editor) Active(userID int64) bool {
	st, ok := e.sessions.Get(userID)
	return ok && st.Step != StepIdle
}

// Reset drops the user's edit state without replying.
func (e *Editor) Reset(userID int64) bool {
	return e.sessions.Clear(userID)
}

// Cancel drops a pending text edit and reports whether there was one.
func (e *Editor) Cancel(ctx context.Context, userID int64) (bool, error) {
	if !e.Active(userID) {
		return false, nil
	}
	e.sessions.Clear(userID)
	_, err := e.msg.Send(ctx, userID, "❌ Editing cancelled.", nil)
	return true, err
}

// Open shows the contact card with its edit actions and arms the editor on that contact.
func (e *Editor) Open(ctx context.Context, ev chat.Event, contactID string) error {
	e.sessions.Set(ev.UserID, State{Step: StepIdle, ContactID: contactID})
	return e.renderDetails(ctx, ev, contactID, "")
}

// HandleText applies a pending text edit.
func (e *Editor) HandleText(ctx context.Context, ev chat.Event) (bool, error) {
	st, ok := e.sessions.Get(ev.UserID)
	if !ok || st.Step == StepIdle {
		return false, nil
	}
	text := strings.TrimSpace(ev.Text)
	log := slog.With("user_id", ev.UserID, "contact_id", st.ContactID, "step", st.Step)

	var (
		upd    store.Update
		banner string
	)
	switch st.Step {
	case StepName:
		if err := contact.ValidateText(text, contact.MaxNameLenEdit); err != nil {
			if errors.Is(err, contact.ErrNameEmpty) {
				return true, e.send(ctx, ev.UserID, "⚠️ The name cannot be empty.")
			}
			return true, e.send(ctx, ev.UserID, "⚠️ The name is too long (max 64 characters).")
		}
		err := contact.CheckNameFree(ctx, e.store, ev.UserID, text, st.ContactID)
		if errors.Is(err, contact.ErrNameTaken) {
			return true, e.send(ctx, ev.UserID, fmt.Sprintf(
				"⚠️ A contact named \"%s\" already exists.\nEnter another name.", html.EscapeString(text)))
		}
		if err != nil {
			log.Error("edit name check failed", "error", err)
			e.sessions.Clear(ev.UserID)
			return true, e.send(ctx, ev.UserID, msgSaveError)
		}
		upd = store.Update{Name: &text}
		banner = fmt.Sprintf("✅ Name changed to \"%s\".", html.EscapeString(text))

	case StepBirthday:
		if text == ClearCommand {
			upd = store.Update{ClearBirthday: true}
			banner = "✅ Birthday removed."
			break
		}
		stored, err := birthday.Parse(text, e.clock.Now())
		switch {
		case errors.Is(err, birthday.ErrFormat):
			return true, e.send(ctx, ev.UserID, "⚠️ Wrong format. Enter DD.MM or DD.MM.YYYY (or /clear to remove).")
		case errors.Is(err, birthday.ErrNoSuchDate):
			return true, e.send(ctx, ev.UserID, "⚠️ That date does not exist. Try again:")
		case errors.Is(err, birthday.ErrFuture):
			return true, e.send(ctx, ev.UserID, "⚠️ The date cannot be in the future. Try again:")
		}
		upd = store.Update{Birthday: &stored}
		banner = "✅ Birthday updated: " + stored

	case StepNewExtraName:
		if err := contact.ValidateText(text, contact.MaxFieldKeyLen); err != nil {
			if errors.Is(err, contact.ErrNameEmpty) {
				return true, e.send(ctx, ev.UserID, "⚠️ The field name cannot be empty.")
			}
			return true, e.send(ctx, ev.UserID, "⚠️ The field name is too long (max 64 characters).")
		}
		st.Step = StepNewExtraValue
		st.PendingExtraName = text
		e.sessions.Set(ev.UserID, st)
		return true, e.send(ctx, ev.UserID, fmt.Sprintf("🔑 Enter the value for \"%s\":", html.EscapeString(text)))

	case StepNewExtraValue, StepEditExtra:
		key := st.PendingExtraName
		if key == "" {
			key = st.CurrentKey
		}
		if key == "" {
			log.Error("edit state has no field key")
			e.sessions.Clear(ev.UserID)
			return true, e.send(ctx, ev.UserID, msgStaleMenu)
		}
		if text == "" {
			return true, e.send(ctx, ev.UserID, "⚠️ The value cannot be empty.")
		}
		upd = store.Update{SetExtra: &store.ExtraField{Key: key, Value: text}}
		banner = fmt.Sprintf("✅ Field \"%s\" saved.", html.EscapeString(key))

	default:
		return false, nil
	}

	return true, e.apply(ctx, ev, st.ContactID, upd, banner)
}

// apply writes one change, drops the edit state and shows the stored contact.
func (e *Editor) apply(ctx context.Context, ev chat.Event, contactID string, upd store.Update, banner string) error {
	e.sessions.Clear(ev.UserID)

	if err := e.store.Update(ctx, ev.UserID, contactID, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return e.send(ctx, ev.UserID, msgNotFound)
		}
		slog.Error("edit write failed", "error", err, "user_id", ev.UserID, "contact_id", contactID)
		return e.send(ctx, ev.UserID, msgSaveError)
	}
	slog.Info("contact updated", "user_id", ev.UserID, "contact_id", contactID)
	if e.onWrite != nil {
		e.onWrite(ev.UserID)
	}
	return e.renderDetails(ctx, ev, contactID, banner)
}

func (e *Editor) send(ctx context.Context, userID int64, text string) error {
	_, err := e.msg.Send(ctx, userID, text, nil)
	return err
}
