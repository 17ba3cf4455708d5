// Package telegram connects the chat flows to the Telegram Bot API through telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"contactsBot/internal/chat"
)

// Messenger delivers HTML messages with inline keyboards.
type Messenger struct {
	bot *tele.Bot
}

func NewMessenger(b *tele.Bot) *Messenger {
	return &Messenger{bot: b}
}

func (m *Messenger) Send(ctx context.Context, userID int64, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return chat.MessageRef{}, err
	}
	msg, err := m.bot.Send(tele.ChatID(userID), text, options(kb)...)
	if err != nil {
		return chat.MessageRef{}, mapError(err)
	}
	return chat.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (m *Messenger) Edit(ctx context.Context, ref chat.MessageRef, text string, kb chat.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.bot.Edit(stored(ref), text, options(kb)...)
	if err != nil && !notModified(err) {
		return mapError(err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, ref chat.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(m.bot.Delete(stored(ref)))
}

func stored(ref chat.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

// options renders HTML and, when kb has buttons, an inline keyboard. An edit without a keyboard
// removes the one the message had.
func options(kb chat.Keyboard) []interface{} {
	opts := []interface{}{tele.ModeHTML}
	if len(kb) > 0 {
		opts = append(opts, markup(kb))
	}
	return opts
}

// markup converts a keyboard to inline buttons. Button data is passed through untouched, so
// choices arrive at the OnCallback handler.
func markup(kb chat.Keyboard) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.InlineKeyboard = make([][]tele.InlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		rm.InlineKeyboard = append(rm.InlineKeyboard, buttons)
	}
	return rm
}

// mapError turns refused deliveries into chat.ErrRecipientBlocked.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tele.ErrBlockedByUser) || errors.Is(err, tele.ErrUserIsDeactivated) {
		return fmt.Errorf("%w: %v", chat.ErrRecipientBlocked, err)
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %v", chat.ErrRecipientBlocked, err)
	}
	return err
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
