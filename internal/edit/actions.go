package edit

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact"
	"contactsBot/internal/store"
)

// Choice data handled by the editor. Contact-addressed actions append ":<contact id>".
const (
	Prefix         = "edit:"
	actionOpen     = "open"
	actionName     = "name"
	actionBirthday = "bday"
	actionGroup    = "group"
	actionSetGroup = "setgroup"
	actionExtras   = "extras"
	actionAddExtra = "addx"
	actionClose    = "close"
	actionBack     = "back"
	actionEditXtra = "xe"
	actionDelXtra  = "xd"
)

// OpenData is the choice that opens a contact in the editor.
func OpenData(contactID string) string {
	return action(actionOpen, contactID)
}

func action(parts ...string) string {
	return Prefix + strings.Join(parts, ":")
}

// HandleChoice dispatches the editor's choices.
func (e *Editor) HandleChoice(ctx context.Context, ev chat.Event) (bool, error) {
	rest, ok := strings.CutPrefix(ev.Data, Prefix)
	if !ok {
		return false, nil
	}
	params := strings.Split(rest, ":")
	if len(params) < 2 {
		return true, e.send(ctx, ev.UserID, "ℹ️ This action is not available right now.")
	}
	act, arg := params[0], params[1]
	userID := ev.UserID

	switch act {
	case actionOpen:
		return true, e.Open(ctx, ev, arg)

	case actionName:
		e.sessions.Set(userID, State{Step: StepName, ContactID: arg})
		return true, e.send(ctx, userID, "✍️ Enter the new name of the contact:")

	case actionBirthday:
		e.sessions.Set(userID, State{Step: StepBirthday, ContactID: arg})
		return true, e.send(ctx, userID, "🎂 Enter the birthday as DD.MM or DD.MM.YYYY (or /clear to remove it):")

	case actionGroup:
		e.sessions.Set(userID, State{Step: StepIdle, ContactID: arg})
		return true, chat.Reply(ctx, e.msg, ev, "👥 Choose the new group:", groupKeyboard(arg))

	case actionSetGroup:
		if len(params) < 3 {
			return true, e.send(ctx, userID, "ℹ️ This action is not available right now.")
		}
		g, known := contact.GroupByKey(params[2])
		if !known {
			return true, e.send(ctx, userID, "ℹ️ Unknown group.")
		}
		label := g.Label
		return true, e.apply(ctx, ev, arg, store.Update{Group: &label},
			fmt.Sprintf("✅ Group changed to \"%s\".", html.EscapeString(label)))

	case actionExtras:
		return true, e.showExtras(ctx, ev, arg)

	case actionAddExtra:
		st, _ := e.sessions.Get(userID)
		e.sessions.Set(userID, State{Step: StepNewExtraName, ContactID: arg, TokenMap: st.TokenMap})
		e.deleteSource(ctx, ev)
		return true, e.send(ctx, userID, "🔑 Enter the name of the new field (for example Phone, City):")

	case actionClose:
		e.sessions.Clear(userID)
		e.deleteSource(ctx, ev)
		return true, nil

	case actionBack:
		e.sessions.Clear(userID)
		return true, e.renderDetails(ctx, ev, arg, "")

	case actionEditXtra, actionDelXtra:
		st, key, err := e.resolveToken(userID, arg)
		if err != nil {
			slog.Warn("stale extras token", "user_id", userID, "token", arg)
			return true, e.send(ctx, userID, msgStaleMenu)
		}
		if act == actionDelXtra {
			return true, e.apply(ctx, ev, st.ContactID, store.Update{DeleteExtra: key},
				fmt.Sprintf("✅ Field \"%s\" deleted.", html.EscapeString(key)))
		}
		delete(st.TokenMap, arg)
		e.sessions.Set(userID, State{Step: StepEditExtra, ContactID: st.ContactID, CurrentKey: key, TokenMap: st.TokenMap})
		e.deleteSource(ctx, ev)
		return true, e.send(ctx, userID, fmt.Sprintf("✍️ Enter the new value for \"%s\":", html.EscapeString(key)))
	}

	return true, e.send(ctx, userID, "ℹ️ This action is not available right now.")
}

// resolveToken maps a token of the current extras menu to its field name.
func (e *Editor) resolveToken(userID int64, token string) (State, string, error) {
	st, ok := e.sessions.Get(userID)
	if !ok || st.TokenMap == nil {
		return State{}, "", ErrStaleToken
	}
	key, ok := st.TokenMap[token]
	if !ok {
		return State{}, "", ErrStaleToken
	}
	return st, key, nil
}

// showExtras renders the extra fields menu with a fresh token map; tokens of earlier renders
// stop working.
func (e *Editor) showExtras(ctx context.Context, ev chat.Event, contactID string) error {
	c, err := e.store.Get(ctx, ev.UserID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return e.send(ctx, ev.UserID, msgNotFound)
	}
	if err != nil {
		slog.Error("extras menu load failed", "error", err, "user_id", ev.UserID, "contact_id", contactID)
		return e.send(ctx, ev.UserID, "❌ Could not open the extra fields menu.")
	}

	text := "📎 Choose a field to edit or add a new one:"
	keys := contact.SortedExtraKeys(c)
	if len(keys) == 0 {
		text = "📎 This contact has no extra fields."
	}

	tokens := make(map[string]string, len(keys))
	var kb chat.Keyboard
	for _, k := range keys {
		tok := newToken(tokens)
		tokens[tok] = k
		kb = append(kb, chat.Row(
			chat.Button{Text: "✏️ " + k, Data: action(actionEditXtra, tok)},
			chat.Button{Text: "🗑 " + k, Data: action(actionDelXtra, tok)},
		))
	}
	kb = append(kb,
		chat.Row(chat.Button{Text: "➕ Add field", Data: action(actionAddExtra, contactID)}),
		chat.Row(chat.Button{Text: "⬅️ Back", Data: action(actionBack, contactID)}),
	)

	e.sessions.Set(ev.UserID, State{Step: StepIdle, ContactID: contactID, TokenMap: tokens})
	return chat.Reply(ctx, e.msg, ev, text, kb)
}

// newToken returns a short token not yet used in taken.
func newToken(taken map[string]string) string {
	for {
		tok := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		if _, dup := taken[tok]; !dup {
			return tok
		}
	}
}

// renderDetails re-reads the contact and shows its card, with banner on top when set.
func (e *Editor) renderDetails(ctx context.Context, ev chat.Event, contactID, banner string) error {
	c, err := e.store.Get(ctx, ev.UserID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return e.send(ctx, ev.UserID, msgNotFound)
	}
	if err != nil {
		slog.Error("contact details load failed", "error", err, "user_id", ev.UserID, "contact_id", contactID)
		return e.send(ctx, ev.UserID, "❌ Could not load the contact details.")
	}

	text := contact.FormatDetails(c, false)
	if banner != "" {
		text = banner + "\n\n" + text
	}
	return chat.Reply(ctx, e.msg, ev, text, detailsKeyboard(contactID))
}

func (e *Editor) deleteSource(ctx context.Context, ev chat.Event) {
	if ev.Message.IsZero() {
		return
	}
	if err := e.msg.Delete(ctx, ev.Message); err != nil {
		slog.Debug("could not delete menu message", "error", err, "user_id", ev.UserID)
	}
}

func detailsKeyboard(contactID string) chat.Keyboard {
	return chat.Keyboard{
		chat.Row(
			chat.Button{Text: "✏️ Change name", Data: action(actionName, contactID)},
			chat.Button{Text: "👥 Change group", Data: action(actionGroup, contactID)},
		),
		chat.Row(
			chat.Button{Text: "🎂 Change birthday", Data: action(actionBirthday, contactID)},
			chat.Button{Text: "📎 Extra fields", Data: action(actionExtras, contactID)},
		),
		chat.Row(chat.Button{Text: "⬅️ Close", Data: action(actionClose, contactID)}),
	}
}

func groupKeyboard(contactID string) chat.Keyboard {
	var kb chat.Keyboard
	for i := 0; i < len(contact.Groups); i += 2 {
		var row []chat.Button
		for _, g := range contact.Groups[i:min(i+2, len(contact.Groups))] {
			row = append(row, chat.Button{Text: g.Icon + " " + g.Label, Data: action(actionSetGroup, contactID, g.Key)})
		}
		kb = append(kb, row)
	}
	return kb
}
