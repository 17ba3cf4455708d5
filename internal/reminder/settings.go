package reminder

import (
	"context"
	"log/slog"
	"strings"

	"contactsBot/internal/chat"
	"contactsBot/internal/store"
)

// Choice data handled by the settings menu.
const (
	Prefix       = "remind:"
	choiceToggle = "remind:toggle:"
	choiceClose  = "remind:close"
)

const menuText = "🔔 Choose when you want to be reminded:"

// Settings is the reminder offsets menu.
type Settings struct {
	store store.Store
	msg   chat.Messenger
}

func NewSettings(st store.Store, m chat.Messenger) *Settings {
	return &Settings{store: st, msg: m}
}

// Show sends the menu with the user's current choices. Users without settings see every
// offset switched off.
func (s *Settings) Show(ctx context.Context, userID int64) error {
	rs, _, err := s.store.GetReminderSettings(ctx, userID)
	if err != nil {
		slog.Error("reminder settings load failed", "error", err, "user_id", userID)
		_, err = s.msg.Send(ctx, userID, "❌ Could not load your reminder settings.", nil)
		return err
	}
	_, err = s.msg.Send(ctx, userID, menuText, menuKeyboard(rs.Offsets))
	return err
}

// HandleChoice flips one offset and saves the whole settings document, or closes the menu.
func (s *Settings) HandleChoice(ctx context.Context, ev chat.Event) (bool, error) {
	if !strings.HasPrefix(ev.Data, Prefix) {
		return false, nil
	}
	if ev.Data == choiceClose {
		if !ev.Message.IsZero() {
			if err := s.msg.Delete(ctx, ev.Message); err != nil {
				slog.Debug("could not delete settings menu", "error", err, "user_id", ev.UserID)
			}
		}
		return true, nil
	}

	key, ok := strings.CutPrefix(ev.Data, choiceToggle)
	if _, known := OffsetByKey(key); !ok || !known {
		_, err := s.msg.Send(ctx, ev.UserID, "ℹ️ This action is not available right now.", nil)
		return true, err
	}

	rs, _, err := s.store.GetReminderSettings(ctx, ev.UserID)
	if err != nil {
		slog.Error("reminder settings load failed", "error", err, "user_id", ev.UserID)
		_, err = s.msg.Send(ctx, ev.UserID, "❌ Could not save the setting.", nil)
		return true, err
	}
	offsets := make(map[string]bool, len(Offsets))
	for _, o := range Offsets {
		offsets[o.Key] = rs.Offsets[o.Key]
	}
	offsets[key] = !offsets[key]

	if err := s.store.SaveReminderSettings(ctx, ev.UserID, offsets); err != nil {
		slog.Error("reminder settings save failed", "error", err, "user_id", ev.UserID)
		_, err = s.msg.Send(ctx, ev.UserID, "❌ Could not save the setting.", nil)
		return true, err
	}
	slog.Debug("reminder offset toggled", "user_id", ev.UserID, "offset", key, "enabled", offsets[key])
	return true, chat.Reply(ctx, s.msg, ev, menuText, menuKeyboard(offsets))
}

func menuKeyboard(offsets map[string]bool) chat.Keyboard {
	var kb chat.Keyboard
	var row []chat.Button
	for _, o := range Offsets {
		mark := "⬜️"
		if offsets[o.Key] {
			mark = "✅"
		}
		row = append(row, chat.Button{Text: mark + " " + o.Label, Data: choiceToggle + o.Key})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return append(kb, chat.Row(chat.Button{Text: "⬅️ Close", Data: choiceClose}))
}
