// Package testutil provides fakes shared by the flow tests.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact/models"
	"contactsBot/internal/store"
)

// ErrStoreDown is returned by FlakyStore operations that were told to fail.
var ErrStoreDown = errors.New("store unavailable")

// Message is one message recorded by Messenger.
type Message struct {
	Ref      chat.MessageRef
	UserID   int64
	Text     string
	Keyboard chat.Keyboard
	Edited   bool
}

// Messenger records everything the flows send.
type Messenger struct {
	mu      sync.Mutex
	nextID  int
	Sent    []Message
	Deleted []chat.MessageRef
	// Blocked users get chat.ErrRecipientBlocked from Send.
	Blocked map[int64]bool
	// FailSend makes every Send return an error.
	FailSend bool
}

func NewMessenger() *Messenger {
	return &Messenger{Blocked: make(map[int64]bool)}
}

func (m *Messenger) Send(ctx context.Context, userID int64, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Blocked[userID] {
		return chat.MessageRef{}, chat.ErrRecipientBlocked
	}
	if m.FailSend {
		return chat.MessageRef{}, errors.New("send failed")
	}
	m.nextID++
	ref := chat.MessageRef{ChatID: userID, MessageID: m.nextID}
	m.Sent = append(m.Sent, Message{Ref: ref, UserID: userID, Text: text, Keyboard: kb})
	return ref, nil
}

func (m *Messenger) Edit(ctx context.Context, ref chat.MessageRef, text string, kb chat.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, Message{Ref: ref, UserID: ref.ChatID, Text: text, Keyboard: kb, Edited: true})
	return nil
}

func (m *Messenger) Delete(ctx context.Context, ref chat.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, ref)
	return nil
}

// Last returns the most recent message, or a zero Message.
func (m *Messenger) Last() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return Message{}
	}
	return m.Sent[len(m.Sent)-1]
}

// Count returns how many messages were sent or edited.
func (m *Messenger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// For returns the messages delivered to userID.
func (m *Messenger) For(userID int64) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.Sent {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// FindButton returns the first button of msg whose data starts with prefix.
func FindButton(msg Message, prefix string) (chat.Button, bool) {
	for _, row := range msg.Keyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Data, prefix) {
				return b, true
			}
		}
	}
	return chat.Button{}, false
}

// Buttons returns the data of every button of msg with the given prefix, in order.
func Buttons(msg Message, prefix string) []chat.Button {
	var out []chat.Button
	for _, row := range msg.Keyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Data, prefix) {
				out = append(out, b)
			}
		}
	}
	return out
}

// FlakyStore wraps a store and fails selected operations on demand.
type FlakyStore struct {
	store.Store

	mu       sync.Mutex
	failing  map[string]bool
	ListHits int
}

func NewFlakyStore(inner store.Store) *FlakyStore {
	return &FlakyStore{Store: inner, failing: make(map[string]bool)}
}

// Fail makes the named operation (Add, Get, Update, Delete, QueryByField, ListAll,
// ListUsers, GetReminderSettings, SaveReminderSettings) return ErrStoreDown.
func (s *FlakyStore) Fail(op string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[op] = fail
}

func (s *FlakyStore) fails(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failing[op]
}

func (s *FlakyStore) Add(ctx context.Context, userID int64, c models.Contact) (string, error) {
	if s.fails("Add") {
		return "", ErrStoreDown
	}
	return s.Store.Add(ctx, userID, c)
}

func (s *FlakyStore) Get(ctx context.Context, userID int64, id string) (models.Contact, error) {
	if s.fails("Get") {
		return models.Contact{}, ErrStoreDown
	}
	return s.Store.Get(ctx, userID, id)
}

func (s *FlakyStore) Update(ctx context.Context, userID int64, id string, u store.Update) error {
	if s.fails("Update") {
		return ErrStoreDown
	}
	return s.Store.Update(ctx, userID, id, u)
}

func (s *FlakyStore) Delete(ctx context.Context, userID int64, id string) error {
	if s.fails("Delete") {
		return ErrStoreDown
	}
	return s.Store.Delete(ctx, userID, id)
}

func (s *FlakyStore) QueryByField(ctx context.Context, userID int64, field store.Field, value string) ([]models.Contact, error) {
	if s.fails("QueryByField") {
		return nil, ErrStoreDown
	}
	return s.Store.QueryByField(ctx, userID, field, value)
}

func (s *FlakyStore) ListAll(ctx context.Context, userID int64) ([]models.Contact, error) {
	s.mu.Lock()
	s.ListHits++
	s.mu.Unlock()
	if s.fails("ListAll") {
		return nil, ErrStoreDown
	}
	return s.Store.ListAll(ctx, userID)
}

func (s *FlakyStore) ListUsers(ctx context.Context) ([]int64, error) {
	if s.fails("ListUsers") {
		return nil, ErrStoreDown
	}
	return s.Store.ListUsers(ctx)
}

func (s *FlakyStore) GetReminderSettings(ctx context.Context, userID int64) (models.ReminderSettings, bool, error) {
	if s.fails("GetReminderSettings") {
		return models.ReminderSettings{}, false, ErrStoreDown
	}
	return s.Store.GetReminderSettings(ctx, userID)
}

func (s *FlakyStore) SaveReminderSettings(ctx context.Context, userID int64, offsets map[string]bool) error {
	if s.fails("SaveReminderSettings") {
		return ErrStoreDown
	}
	return s.Store.SaveReminderSettings(ctx, userID, offsets)
}

// Clock is a settable clock.
type Clock struct {
	mu sync.Mutex
	T  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{T: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}
