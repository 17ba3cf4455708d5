// Package chat defines the slice of the chat transport the flows depend on.
package chat

import (
	"context"
	"errors"
)

// ErrRecipientBlocked is returned by a Messenger when the user refuses delivery,
// e.g. because they blocked the bot.
var ErrRecipientBlocked = errors.New("recipient blocked delivery")

// Button is a discrete choice attached to a message. Data is what comes back in Event.Data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of choices, row by row.
type Keyboard [][]Button

// Row builds a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// MessageRef identifies a message that was already sent.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference points nowhere.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 || r.MessageID == 0
}

// Messenger sends and edits messages. Texts are HTML formatted.
type Messenger interface {
	Send(ctx context.Context, userID int64, text string, kb Keyboard) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	Delete(ctx context.Context, ref MessageRef) error
}

// Event is one inbound user action: free text, or a choice selected on Message.
type Event struct {
	UserID  int64
	Text    string
	Data    string
	Message MessageRef
}

// IsChoice reports whether the event is a choice selection rather than free text.
func (e Event) IsChoice() bool {
	return e.Data != ""
}

// Reply edits the message a choice was made on, falling back to a new message when the
// event has no message or the edit fails.
func Reply(ctx context.Context, m Messenger, ev Event, text string, kb Keyboard) error {
	if ev.IsChoice() && !ev.Message.IsZero() {
		if err := m.Edit(ctx, ev.Message, text, kb); err == nil {
			return nil
		}
	}
	_, err := m.Send(ctx, ev.UserID, text, kb)
	return err
}
