// Package list renders a user's contacts as a filterable, paginated list with a detail view
// and a name-confirmed delete.
package list

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact"
	"contactsBot/internal/contact/models"
	"contactsBot/internal/edit"
	"contactsBot/internal/session"
	"contactsBot/internal/store"
)

// Choice data handled by the list.
const (
	Prefix       = "list:"
	NoopData     = "noop"
	actToggle    = "toggle"
	actPage      = "page"
	actDetails   = "details"
	actDelete    = "delete_id"
	actCancelDel = "cancel_delete"

	maxGroupButtons = 4
)

// View is what the user's current list message shows. Group buttons carry indices into Groups.
type View struct {
	Groups   []string
	Selected Selection
	Page     int
	Message  chat.MessageRef
}

// PendingDelete is a delete request waiting for the user to type the contact's name.
type PendingDelete struct {
	ContactID    string
	ExpectedName string
	ListMessage  chat.MessageRef
	RequestedBy  int64
}

const (
	msgLoadError  = "❌ Could not load your contacts. Please try again later."
	msgStale      = "ℹ️ This list is out of date. Send /list to open it again."
	msgNotFound   = "⚠️ Contact not found."
	msgNoMatch    = "The name does not match. Send the exact contact name to confirm, or press \"Cancel\"."
	msgNoPending  = "ℹ️ There is no pending deletion."
	msgDelCancel  = "❗️ Deletion cancelled."
	msgEmptyStore = "ℹ️ You have no saved contacts.\nSend /add to add one."
)

// Lister serves the list and delete flows for every user.
type Lister struct {
	cache   *Cache
	store   store.Store
	msg     chat.Messenger
	views   *session.Store[View]
	pending *session.Store[PendingDelete]
}

func New(cache *Cache, st store.Store, m chat.Messenger, views *session.Store[View], pending *session.Store[PendingDelete]) *Lister {
	return &Lister{cache: cache, store: st, msg: m, views: views, pending: pending}
}

// Show sends a fresh list message with every group selected.
func (l *Lister) Show(ctx context.Context, userID int64) error {
	contacts, err := l.cache.Load(ctx, userID, false)
	if err != nil {
		slog.Error("list load failed", "error", err, "user_id", userID)
		return l.send(ctx, userID, msgLoadError, nil)
	}
	if len(contacts) == 0 {
		return l.send(ctx, userID, msgEmptyStore, nil)
	}

	v := View{Page: 1}
	text, kb := render(contacts, &v)
	ref, err := l.msg.Send(ctx, userID, text, kb)
	if err != nil {
		return err
	}
	v.Message = ref
	l.views.Set(userID, v)
	return nil
}

// HandleChoice dispatches the list's choices.
func (l *Lister) HandleChoice(ctx context.Context, ev chat.Event) (bool, error) {
	rest, ok := strings.CutPrefix(ev.Data, Prefix)
	if !ok {
		return false, nil
	}
	act, param, _ := strings.Cut(rest, ":")
	userID := ev.UserID

	switch act {
	case actCancelDel:
		return true, l.cancelDelete(ctx, userID)
	case actDelete:
		return true, l.requestDelete(ctx, userID, param)
	}

	v, ok := l.views.Get(userID)
	if !ok {
		return true, l.send(ctx, userID, msgStale, nil)
	}
	n, err := strconv.Atoi(param)
	if err != nil || n < 0 {
		return true, l.send(ctx, userID, msgStale, nil)
	}

	contacts, err := l.cache.Load(ctx, userID, false)
	if err != nil {
		slog.Error("list load failed", "error", err, "user_id", userID)
		return true, l.send(ctx, userID, msgLoadError, nil)
	}

	switch act {
	case actToggle:
		if n >= len(v.Groups) {
			return true, l.send(ctx, userID, msgStale, nil)
		}
		v.Selected = v.Selected.Toggle(v.Groups[n])
		v.Page = 1
		return true, l.rerender(ctx, ev, contacts, v)

	case actPage:
		v.Page = n
		return true, l.rerender(ctx, ev, contacts, v)

	case actDetails:
		entries := Order(contacts, v.Selected)
		if n >= len(entries) {
			return true, l.send(ctx, userID, msgNotFound, nil)
		}
		c := entries[n].Contact
		return true, l.send(ctx, userID, contact.FormatDetails(c, true), chat.Keyboard{chat.Row(
			chat.Button{Text: "✏️ Edit", Data: edit.OpenData(c.ID)},
			chat.Button{Text: "🗑 Delete", Data: DeleteData(c.ID)},
		)})
	}

	return true, l.send(ctx, userID, msgStale, nil)
}

// requestDelete snapshots the contact's id and current name and asks the user to type the name.
func (l *Lister) requestDelete(ctx context.Context, userID int64, contactID string) error {
	c, err := l.store.Get(ctx, userID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return l.send(ctx, userID, msgNotFound, nil)
	}
	if err != nil {
		slog.Error("delete lookup failed", "error", err, "user_id", userID, "contact_id", contactID)
		return l.send(ctx, userID, msgLoadError, nil)
	}

	// the list message, if any, is refreshed once the contact is gone
	var listMsg chat.MessageRef
	if v, ok := l.views.Get(userID); ok {
		listMsg = v.Message
	}
	name := strings.TrimSpace(c.Name)
	l.pending.Set(userID, PendingDelete{
		ContactID:    c.ID,
		ExpectedName: name,
		ListMessage:  listMsg,
		RequestedBy:  userID,
	})
	slog.Debug("delete requested", "user_id", userID, "contact_id", c.ID)
	text := fmt.Sprintf("❗️ Are you sure you want to delete \"<b>%s</b>\"?\n\nType the contact's name to confirm.",
		html.EscapeString(orDash(name)))
	return l.send(ctx, userID, text, chat.Keyboard{chat.Row(
		chat.Button{Text: "Cancel", Data: Prefix + actCancelDel},
	)})
}

func (l *Lister) rerender(ctx context.Context, ev chat.Event, contacts []models.Contact, v View) error {
	text, kb := render(contacts, &v)
	if !ev.Message.IsZero() {
		v.Message = ev.Message
	}
	l.views.Set(ev.UserID, v)
	return chat.Reply(ctx, l.msg, ev, text, kb)
}

// DeleteData is the choice that asks to delete the contact with id.
func DeleteData(id string) string {
	return Prefix + actDelete + ":" + id
}

// ArmsDelete reports whether data requests a delete, which then awaits the typed name.
func ArmsDelete(data string) bool {
	return strings.HasPrefix(data, Prefix+actDelete+":")
}

// Pending reports whether a delete confirmation is awaited from the user.
func (l *Lister) Pending(userID int64) bool {
	_, ok := l.pending.Get(userID)
	return ok
}

// Reset drops the user's pending delete without replying.
func (l *Lister) Reset(userID int64) bool {
	return l.pending.Clear(userID)
}

// Cancel drops a pending delete and reports whether there was one.
func (l *Lister) Cancel(ctx context.Context, userID int64) (bool, error) {
	if !l.pending.Clear(userID) {
		return false, nil
	}
	return true, l.send(ctx, userID, msgDelCancel, nil)
}

func (l *Lister) cancelDelete(ctx context.Context, userID int64) error {
	pd, ok := l.pending.Get(userID)
	if !ok || pd.RequestedBy != userID {
		return l.send(ctx, userID, msgNoPending, nil)
	}
	l.pending.Clear(userID)
	return l.send(ctx, userID, msgDelCancel, nil)
}

// HandleText checks a delete confirmation.
func (l *Lister) HandleText(ctx context.Context, ev chat.Event) (bool, error) {
	userID := ev.UserID
	pd, ok := l.pending.Get(userID)
	if !ok || pd.RequestedBy != userID {
		return false, nil
	}
	typed := strings.TrimSpace(ev.Text)
	if typed == "" {
		return true, nil
	}
	if !strings.EqualFold(typed, pd.ExpectedName) {
		return true, l.send(ctx, userID, msgNoMatch, nil)
	}

	l.pending.Clear(userID)
	err := l.store.Delete(ctx, userID, pd.ContactID)
	if errors.Is(err, store.ErrNotFound) {
		l.cache.Invalidate(userID)
		return true, l.send(ctx, userID, "⚠️ Contact not found or already deleted.", nil)
	}
	if err != nil {
		slog.Error("delete failed", "error", err, "user_id", userID, "contact_id", pd.ContactID)
		return true, l.send(ctx, userID, "❌ Could not delete the contact. Please try again later.", nil)
	}
	l.cache.Invalidate(userID)
	slog.Info("contact deleted", "user_id", userID, "contact_id", pd.ContactID)

	if err := l.send(ctx, userID, fmt.Sprintf("✅ Contact \"<b>%s</b>\" deleted.", html.EscapeString(pd.ExpectedName)), nil); err != nil {
		return true, err
	}
	l.refresh(ctx, userID, pd.ListMessage)
	return true, nil
}

// refresh re-renders the list message ref from a fresh read, with every group selected.
func (l *Lister) refresh(ctx context.Context, userID int64, ref chat.MessageRef) {
	if ref.IsZero() {
		return
	}
	contacts, err := l.cache.Load(ctx, userID, true)
	if err != nil {
		slog.Error("list refresh after delete failed", "error", err, "user_id", userID)
		return
	}
	v := View{Page: 1, Message: ref}
	text, kb := render(contacts, &v)
	if len(contacts) == 0 {
		text, kb = "ℹ️ No contacts found.", nil
	}
	if err := l.msg.Edit(ctx, ref, text, kb); err != nil {
		slog.Debug("could not update list message", "error", err, "user_id", userID)
		return
	}
	l.views.Set(userID, v)
}

func (l *Lister) send(ctx context.Context, userID int64, text string, kb chat.Keyboard) error {
	_, err := l.msg.Send(ctx, userID, text, kb)
	return err
}

func choice(act string, n int) string {
	return Prefix + act + ":" + strconv.Itoa(n)
}
