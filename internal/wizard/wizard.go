// Package wizard implements the step-by-step contact creation flow.
package wizard

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
	"contactsBot/internal/contact/models"
	"contactsBot/internal/session"
	"contactsBot/internal/store"
)

// Step is the wizard's current position.
type Step string

const (
	StepName       Step = "await_name"
	StepGroup      Step = "await_group"
	StepBirthday   Step = "await_birthday"
	StepMoreChoice Step = "await_more_choice"
	StepFieldName  Step = "await_field_name"
	StepFieldValue Step = "await_field_value"
)

// Choice data handled by the wizard.
const (
	Prefix       = "add:"
	choiceGroup  = "add:group:"
	choiceMore   = "add:more"
	choiceFinish = "add:finish"
)

// State is the partially entered contact.
type State struct {
	Step             Step
	Name             string
	Group            string
	Birthday         *string
	ExtraFields      map[string]string
	CurrentFieldName string
}

const (
	promptName     = "📝 Enter a name for the new contact (up to 32 characters):\n(Or send /cancel to abort)"
	promptGroup    = "👥 Choose a group for the contact:"
	promptBirthday = "🎂 Enter the birthday as DD.MM or DD.MM.YYYY\nFor example, 11.01 or 11.01.2007\n(Or send /skip to leave it out)"
	promptField    = "✍️ Enter the name of an extra field (for example \"Phone\", \"City\"):\n(Or /back to return)"
	msgCancelled   = "❌ Contact creation cancelled."
	msgUnavailable = "ℹ️ This action is not available right now."
)

// Wizard drives contact creation for every user.
type Wizard struct {
	store    store.Store
	msg      chat.Messenger
	clock    birthday.Clock
	sessions *session.Store[State]
	onWrite  func(userID int64)
}

// New creates a wizard. onWrite, when not nil, runs after every stored contact.
func New(st store.Store, m chat.Messenger, clock birthday.Clock, sessions *session.Store[State], onWrite func(userID int64)) *Wizard {
	return &Wizard{store: st, msg: m, clock: clock, sessions: sessions, onWrite: onWrite}
}

// Active reports whether the user is in the middle of creating a contact.
func (w *Wizard) Active(userID int64) bool {
	_, ok := w.sessions.Get(userID)
	return ok
}

// Reset drops the user's wizard state without replying.
func (w *Wizard) Reset(userID int64) bool {
	return w.sessions.Clear(userID)
}

// Start arms the wizard at its first step.
func (w *Wizard) Start(ctx context.Context, userID int64) error {
	w.sessions.Set(userID, State{Step: StepName})
	slog.Debug("wizard started", "user_id", userID)
	return w.send(ctx, userID, promptName, nil)
}

// Cancel discards the wizard and reports whether there was one.
func (w *Wizard) Cancel(ctx context.Context, userID int64) (bool, error) {
	if !w.sessions.Clear(userID) {
		return false, nil
	}
	return true, w.send(ctx, userID, msgCancelled, nil)
}

// Skip leaves the birthday out; only valid while the birthday is awaited.
func (w *Wizard) Skip(ctx context.Context, userID int64) error {
	st, ok := w.sessions.Get(userID)
	if !ok || st.Step != StepBirthday {
		return w.send(ctx, userID, "ℹ️ Nothing to skip right now.", nil)
	}
	st.Birthday = nil
	st.Step = StepMoreChoice
	w.sessions.Set(userID, st)
	return w.send(ctx, userID, "🎂 Birthday skipped.\n\n"+summary(st)+"\n\nWould you like to add anything else?", moreChoiceKeyboard())
}

// Back moves one step backwards, forgetting what was entered in the abandoned step.
// From the first step it cancels the whole wizard.
func (w *Wizard) Back(ctx context.Context, userID int64) error {
	st, ok := w.sessions.Get(userID)
	if !ok {
		return w.send(ctx, userID, "ℹ️ There is nothing to go back from.", nil)
	}

	switch st.Step {
	case StepName:
		w.sessions.Clear(userID)
		return w.send(ctx, userID, msgCancelled, nil)
	case StepGroup:
		st.Name = ""
		st.Step = StepName
		w.sessions.Set(userID, st)
		return w.send(ctx, userID, promptName, nil)
	case StepBirthday:
		st.Group = ""
		st.Step = StepGroup
		w.sessions.Set(userID, st)
		return w.send(ctx, userID, promptGroup, groupKeyboard())
	case StepMoreChoice:
		st.Birthday = nil
		st.Step = StepBirthday
		w.sessions.Set(userID, st)
		return w.send(ctx, userID, promptBirthday, nil)
	case StepFieldName:
		st.Step = StepMoreChoice
		w.sessions.Set(userID, st)
		text := "✅ Entered so far:\n\n" + summary(st) + "\n\n" + extrasBlock(st.ExtraFields) + "Would you like to add anything else?"
		return w.send(ctx, userID, text, moreChoiceKeyboard())
	case StepFieldValue:
		st.CurrentFieldName = ""
		st.Step = StepFieldName
		w.sessions.Set(userID, st)
		return w.send(ctx, userID, promptField, nil)
	default:
		return w.send(ctx, userID, "ℹ️ There is nothing to go back from.", nil)
	}
}

// HandleText consumes free text when the wizard is armed for the user.
func (w *Wizard) HandleText(ctx context.Context, ev chat.Event) (bool, error) {
	st, ok := w.sessions.Get(ev.UserID)
	if !ok {
		return false, nil
	}
	text := strings.TrimSpace(ev.Text)
	log := slog.With("user_id", ev.UserID, "step", st.Step)

	switch st.Step {
	case StepName:
		if err := contact.ValidateText(text, contact.MaxNameLenCreate); err != nil {
			if errors.Is(err, contact.ErrNameEmpty) {
				return true, w.send(ctx, ev.UserID, "⚠️ The name cannot be empty.", nil)
			}
			return true, w.send(ctx, ev.UserID, "⚠️ The name is too long.", nil)
		}
		err := contact.CheckNameFree(ctx, w.store, ev.UserID, text, "")
		if errors.Is(err, contact.ErrNameTaken) {
			return true, w.send(ctx, ev.UserID, fmt.Sprintf(
				"⚠️ A contact named \"%s\" already exists.\nEnter another name or /cancel.", html.EscapeString(text)), nil)
		}
		if err != nil {
			log.Error("wizard name check failed", "error", err)
			return true, w.send(ctx, ev.UserID, "❌ Could not check your contacts. Please try again.", nil)
		}
		st.Name = text
		st.Step = StepGroup
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, promptGroup, groupKeyboard())

	case StepGroup:
		return true, w.send(ctx, ev.UserID, "ℹ️ Please pick a group with the buttons above.", nil)

	case StepBirthday:
		stored, err := birthday.Parse(text, w.clock.Now())
		switch {
		case errors.Is(err, birthday.ErrFormat):
			return true, w.send(ctx, ev.UserID,
				"⚠️ Enter the date as DD.MM or DD.MM.YYYY (for example 11.01 or 11.01.2007).\n(Or send /skip to leave it out)", nil)
		case errors.Is(err, birthday.ErrNoSuchDate):
			return true, w.send(ctx, ev.UserID, "⚠️ That date does not exist. Try again:", nil)
		case errors.Is(err, birthday.ErrFuture):
			return true, w.send(ctx, ev.UserID, "⚠️ The date cannot be in the future. Try again:", nil)
		}
		st.Birthday = &stored
		st.Step = StepMoreChoice
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, "✅ Entered:\n\n"+summary(st)+"\n\nWould you like to add anything else?", moreChoiceKeyboard())

	case StepMoreChoice:
		return true, w.send(ctx, ev.UserID, "ℹ️ Press one of the buttons under the message to continue.", nil)

	case StepFieldName:
		if err := contact.ValidateText(text, contact.MaxFieldKeyLen); err != nil {
			if errors.Is(err, contact.ErrNameEmpty) {
				return true, w.send(ctx, ev.UserID, "⚠️ The field name cannot be empty. Try again, or /back.", nil)
			}
			return true, w.send(ctx, ev.UserID, "⚠️ The field name is too long (max 64 characters).", nil)
		}
		st.CurrentFieldName = text
		st.Step = StepFieldValue
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, fmt.Sprintf("🔑 Enter the value for \"%s\":", html.EscapeString(text)), nil)

	case StepFieldValue:
		// any value is kept as typed, blank included
		if st.ExtraFields == nil {
			st.ExtraFields = make(map[string]string)
		}
		added := st.CurrentFieldName
		st.ExtraFields[added] = text
		st.CurrentFieldName = ""
		st.Step = StepMoreChoice
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, fmt.Sprintf("✅ Field added: %s\n\n%sWould you like to add anything else?",
			html.EscapeString(added), extrasBlock(st.ExtraFields)), moreChoiceKeyboard())
	}

	return false, nil
}

// HandleChoice consumes the wizard's own choices.
func (w *Wizard) HandleChoice(ctx context.Context, ev chat.Event) (bool, error) {
	if !strings.HasPrefix(ev.Data, Prefix) {
		return false, nil
	}
	st, ok := w.sessions.Get(ev.UserID)

	switch {
	case strings.HasPrefix(ev.Data, choiceGroup):
		g, known := contact.GroupByKey(strings.TrimPrefix(ev.Data, choiceGroup))
		if !ok || st.Step != StepGroup || !known {
			return true, w.send(ctx, ev.UserID, msgUnavailable, nil)
		}
		st.Group = g.Label
		st.Step = StepBirthday
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, promptBirthday, nil)

	case ev.Data == choiceMore:
		if !ok || st.Step != StepMoreChoice {
			return true, w.send(ctx, ev.UserID, msgUnavailable, nil)
		}
		st.Step = StepFieldName
		w.sessions.Set(ev.UserID, st)
		return true, w.send(ctx, ev.UserID, promptField, nil)

	case ev.Data == choiceFinish:
		if !ok || (st.Step != StepMoreChoice && st.Step != StepFieldName && st.Step != StepFieldValue) {
			return true, w.send(ctx, ev.UserID, "ℹ️ There is nothing to finish right now.", nil)
		}
		return true, w.commit(ctx, ev.UserID, st)
	}

	return true, w.send(ctx, ev.UserID, msgUnavailable, nil)
}

// commit stores the contact. The wizard state is dropped whether or not the write succeeds.
func (w *Wizard) commit(ctx context.Context, userID int64, st State) error {
	defer w.sessions.Clear(userID)

	c := models.Contact{
		Name:     st.Name,
		Group:    st.Group,
		Birthday: st.Birthday,
	}
	if len(st.ExtraFields) > 0 {
		c.ExtraFields = st.ExtraFields
	}

	id, err := w.store.Add(ctx, userID, c)
	if err != nil {
		slog.Error("wizard failed to save contact", "error", err, "user_id", userID)
		return w.send(ctx, userID, "❌ Could not save the contact. Please start again later.", nil)
	}
	slog.Info("contact created", "user_id", userID, "contact_id", id)
	if w.onWrite != nil {
		w.onWrite(userID)
	}

	text := "✅ Contact saved:\n\n" + summary(st)
	if len(st.ExtraFields) > 0 {
		text += "\n\n" + strings.TrimSuffix(extrasBlock(st.ExtraFields), "\n")
	}
	return w.send(ctx, userID, text, nil)
}

func (w *Wizard) send(ctx context.Context, userID int64, text string, kb chat.Keyboard) error {
	_, err := w.msg.Send(ctx, userID, text, kb)
	return err
}
