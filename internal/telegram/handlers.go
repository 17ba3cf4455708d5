package telegram

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"contactsBot/internal/chat"
)

// Handler is the chat logic behind the bot.
type Handler interface {
	Command(ctx context.Context, userID int64, name string) error
	Text(ctx context.Context, ev chat.Event) error
	Choice(ctx context.Context, ev chat.Event) error
}

// Settings configures the bot connection.
type Settings struct {
	Token       string
	PollTimeout time.Duration
	// URL overrides the Bot API endpoint, for tests.
	URL string
	// Offline skips the getMe call on start-up.
	Offline bool
}

// NewBot creates a long-polling bot with HTML as the default parse mode.
func NewBot(s Settings) (*tele.Bot, error) {
	return tele.NewBot(tele.Settings{
		Token:     s.Token,
		URL:       s.URL,
		Offline:   s.Offline,
		Poller:    &tele.LongPoller{Timeout: s.PollTimeout},
		ParseMode: tele.ModeHTML,
		OnError: func(err error, c tele.Context) {
			if c != nil && c.Sender() != nil {
				slog.Error("telegram handler failed", "error", err, "user_id", c.Sender().ID)
				return
			}
			slog.Error("telegram error", "error", err)
		},
	})
}

// Register routes commands, free text and inline choices of private chats to h.
func Register(b *tele.Bot, h Handler, commands []string) {
	b.Use(privateOnly)

	for _, cmd := range commands {
		b.Handle(cmd, func(c tele.Context) error {
			return h.Command(context.Background(), c.Sender().ID, cmd)
		})
	}

	b.Handle(tele.OnText, func(c tele.Context) error {
		return h.Text(context.Background(), chat.Event{UserID: c.Sender().ID, Text: c.Text()})
	})

	b.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		// acknowledge first so the client stops its spinner even if handling fails
		if err := c.Respond(); err != nil {
			slog.Debug("callback answer failed", "error", err)
		}
		ev := chat.Event{UserID: c.Sender().ID, Data: cb.Data}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.Message = chat.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
		}
		return h.Choice(context.Background(), ev)
	})
}

// privateOnly drops updates from groups and channels; contact books are personal.
func privateOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
			return nil
		}
		return next(c)
	}
}
