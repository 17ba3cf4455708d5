// Package bot routes user events to the contact flows.
//
// Events of one user are handled one at a time. At most one text-consuming flow is armed per
// user: starting the wizard, opening the editor or requesting a delete disarms the others.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"contactsBot/internal/chat"
	"contactsBot/internal/edit"
	"contactsBot/internal/list"
	"contactsBot/internal/reminder"
	"contactsBot/internal/session"
	"contactsBot/internal/wizard"
)

// Commands understood by the bot.
const (
	CmdStart     = "/start"
	CmdHelp      = "/help"
	CmdAdd       = "/add"
	CmdCancel    = "/cancel"
	CmdSkip      = "/skip"
	CmdBack      = "/back"
	CmdList      = "/list"
	CmdSetRemind = "/setremind"
	CmdClear     = edit.ClearCommand
)

// Commands lists every command, for handler registration.
var Commands = []string{CmdStart, CmdHelp, CmdAdd, CmdCancel, CmdSkip, CmdBack, CmdList, CmdSetRemind, CmdClear}

const (
	helpText = `👋 <b>Contacts bot</b>

I keep your contacts and remind you about their birthdays.

/add - add a new contact
/list - show your contacts, open one to edit or delete it
/setremind - choose when to get birthday reminders
/cancel - stop what you are doing
/help - show this message`

	msgNothingToCancel = "ℹ️ There is nothing to cancel."
	msgUnavailable     = "ℹ️ This action is not available right now."
	msgIdle            = "ℹ️ Send /add to create a contact or /list to see your contacts."
)

// Router dispatches commands, text and choices to the flows.
type Router struct {
	msg      chat.Messenger
	locks    *session.Locker
	wizard   *wizard.Wizard
	editor   *edit.Editor
	lister   *list.Lister
	settings *reminder.Settings
}

func NewRouter(m chat.Messenger, locks *session.Locker, w *wizard.Wizard, e *edit.Editor, l *list.Lister, s *reminder.Settings) *Router {
	return &Router{msg: m, locks: locks, wizard: w, editor: e, lister: l, settings: s}
}

// Command handles one slash command.
func (r *Router) Command(ctx context.Context, userID int64, name string) error {
	defer r.locks.Lock(userID)()
	slog.Debug("command", "user_id", userID, "command", name)

	switch name {
	case CmdStart, CmdHelp:
		return r.send(ctx, userID, helpText)

	case CmdAdd:
		r.editor.Reset(userID)
		r.lister.Reset(userID)
		return r.wizard.Start(ctx, userID)

	case CmdCancel:
		for _, cancel := range []func(context.Context, int64) (bool, error){r.wizard.Cancel, r.editor.Cancel, r.lister.Cancel} {
			if done, err := cancel(ctx, userID); done || err != nil {
				return err
			}
		}
		return r.send(ctx, userID, msgNothingToCancel)

	case CmdSkip:
		return r.wizard.Skip(ctx, userID)

	case CmdBack:
		return r.wizard.Back(ctx, userID)

	case CmdList:
		return r.lister.Show(ctx, userID)

	case CmdSetRemind:
		return r.settings.Show(ctx, userID)

	case CmdClear:
		if handled, err := r.editor.HandleText(ctx, chat.Event{UserID: userID, Text: CmdClear}); handled || err != nil {
			return err
		}
		return r.send(ctx, userID, "ℹ️ Nothing to clear right now.")
	}

	return r.send(ctx, userID, msgIdle)
}

// Text hands free text to the armed flow, if any. Arming one flow disarms the others, so at
// most one of them is waiting.
func (r *Router) Text(ctx context.Context, ev chat.Event) error {
	defer r.locks.Lock(ev.UserID)()

	var handle func(context.Context, chat.Event) (bool, error)
	switch {
	case r.lister.Pending(ev.UserID):
		handle = r.lister.HandleText
	case r.wizard.Active(ev.UserID):
		handle = r.wizard.HandleText
	case r.editor.Active(ev.UserID):
		handle = r.editor.HandleText
	default:
		return r.send(ctx, ev.UserID, msgIdle)
	}
	if handled, err := handle(ctx, ev); handled || err != nil {
		return err
	}
	return r.send(ctx, ev.UserID, msgIdle)
}

// Choice hands a selected choice to the flow owning its prefix.
func (r *Router) Choice(ctx context.Context, ev chat.Event) error {
	defer r.locks.Lock(ev.UserID)()
	slog.Debug("choice", "user_id", ev.UserID, "data", ev.Data)

	switch {
	case ev.Data == list.NoopData:
		return nil
	case strings.HasPrefix(ev.Data, edit.Prefix):
		r.wizard.Reset(ev.UserID)
		r.lister.Reset(ev.UserID)
		_, err := r.editor.HandleChoice(ctx, ev)
		return err
	case strings.HasPrefix(ev.Data, wizard.Prefix):
		_, err := r.wizard.HandleChoice(ctx, ev)
		return err
	case strings.HasPrefix(ev.Data, list.Prefix):
		if list.ArmsDelete(ev.Data) {
			r.wizard.Reset(ev.UserID)
			r.editor.Reset(ev.UserID)
		}
		_, err := r.lister.HandleChoice(ctx, ev)
		return err
	case strings.HasPrefix(ev.Data, reminder.Prefix):
		_, err := r.settings.HandleChoice(ctx, ev)
		return err
	}

	slog.Warn("unknown choice", "user_id", ev.UserID, "data", ev.Data)
	return r.send(ctx, ev.UserID, msgUnavailable)
}

func (r *Router) send(ctx context.Context, userID int64, text string) error {
	_, err := r.msg.Send(ctx, userID, text, nil)
	return err
}
