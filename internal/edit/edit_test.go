package edit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact/models"
	"contactsBot/internal/session"
	"contactsBot/internal/store"
	"contactsBot/internal/testutil"
)

const userID = int64(200)

type fixture struct {
	ctx      context.Context
	store    *testutil.FlakyStore
	msg      *testutil.Messenger
	sessions *session.Store[State]
	editor   *Editor
	writes   int
	annaID   string
	bobID    string
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    testutil.NewFlakyStore(store.NewMemoryStore()),
		msg:      testutil.NewMessenger(),
		sessions: session.New[State]("edit"),
	}
	clock := testutil.NewClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	f.editor = New(f.store, f.msg, clock, f.sessions, func(int64) { f.writes++ })

	var err error
	f.annaID, err = f.store.Add(f.ctx, userID, models.Contact{
		Name:        "Anna",
		Group:       "Friends",
		Birthday:    strPtr("15.03.1990"),
		ExtraFields: map[string]string{"City": "Kyiv", "Phone": "123"},
	})
	require.NoError(t, err)
	f.bobID, err = f.store.Add(f.ctx, userID, models.Contact{Name: "Bob", Group: "Family"})
	require.NoError(t, err)
	return f
}

func (f *fixture) choose(t *testing.T, data string) {
	t.Helper()
	handled, err := f.editor.HandleChoice(f.ctx, chat.Event{
		UserID:  userID,
		Data:    data,
		Message: chat.MessageRef{ChatID: userID, MessageID: 999},
	})
	require.NoError(t, err)
	require.True(t, handled)
}

func (f *fixture) text(t *testing.T, s string) {
	t.Helper()
	handled, err := f.editor.HandleText(f.ctx, chat.Event{UserID: userID, Text: s})
	require.NoError(t, err)
	require.True(t, handled)
}

func (f *fixture) contact(t *testing.T, id string) models.Contact {
	t.Helper()
	c, err := f.store.Get(f.ctx, userID, id)
	require.NoError(t, err)
	return c
}

func TestEditOpenShowsDetails(t *testing.T) {
	f := newFixture(t)
	f.choose(t, OpenData(f.annaID))

	last := f.msg.Last()
	assert.True(t, last.Edited)
	assert.Contains(t, last.Text, "Anna")
	assert.Contains(t, last.Text, "Kyiv")
	_, ok := testutil.FindButton(last, action(actionExtras, f.annaID))
	assert.True(t, ok)
	assert.False(t, f.editor.Active(userID), "opening the card does not claim text")
}

func TestEditName(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionName, f.annaID))
	assert.True(t, f.editor.Active(userID))

	f.text(t, "Bob")
	assert.Contains(t, f.msg.Last().Text, "already exists")
	assert.True(t, f.editor.Active(userID))

	f.text(t, strings.Repeat("n", 65))
	assert.Contains(t, f.msg.Last().Text, "too long")

	// renaming to the current name is allowed
	f.text(t, "Anna")
	assert.False(t, f.editor.Active(userID))
	assert.Equal(t, "Anna", f.contact(t, f.annaID).Name)

	f.choose(t, action(actionName, f.annaID))
	f.text(t, "Anna Maria")
	assert.Equal(t, "Anna Maria", f.contact(t, f.annaID).Name)
	assert.Equal(t, 2, f.writes)
	last := f.msg.Last()
	assert.Contains(t, last.Text, "Name changed")
	assert.Contains(t, last.Text, "Contact details")
}

func TestEditBirthday(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionBirthday, f.bobID))

	f.text(t, "30.02.1990")
	assert.Contains(t, f.msg.Last().Text, "does not exist")
	f.text(t, "1990-01-01")
	assert.Contains(t, f.msg.Last().Text, "Wrong format")

	f.text(t, "30.02")
	c := f.contact(t, f.bobID)
	require.NotNil(t, c.Birthday)
	assert.Equal(t, "30.02.????", *c.Birthday)

	f.choose(t, action(actionBirthday, f.bobID))
	f.text(t, ClearCommand)
	assert.Nil(t, f.contact(t, f.bobID).Birthday)
}

func TestEditGroupWritesImmediately(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionGroup, f.annaID))
	assert.Len(t, testutil.Buttons(f.msg.Last(), action(actionSetGroup, f.annaID)), 4)

	f.choose(t, action(actionSetGroup, f.annaID, "colleagues"))
	assert.Equal(t, "Colleagues", f.contact(t, f.annaID).Group)
	assert.Contains(t, f.msg.Last().Text, "Group changed")
	assert.Equal(t, 1, f.writes)
}

func TestEditExtrasTokens(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionExtras, f.annaID))
	firstMenu := f.msg.Last()
	edits := testutil.Buttons(firstMenu, action(actionEditXtra))
	require.Len(t, edits, 2)
	assert.Equal(t, "✏️ City", edits[0].Text)

	// a second render invalidates the first menu's tokens
	f.choose(t, action(actionExtras, f.annaID))
	f.choose(t, edits[0].Data)
	assert.Equal(t, msgStaleMenu, f.msg.Last().Text)

	menu := f.msg.Last()
	for i := f.msg.Count() - 1; i >= 0; i-- {
		if m := f.msg.Sent[i]; len(testutil.Buttons(m, action(actionEditXtra))) > 0 {
			menu = m
			break
		}
	}
	current := testutil.Buttons(menu, action(actionEditXtra))
	require.Len(t, current, 2)

	f.choose(t, current[1].Data)
	assert.True(t, f.editor.Active(userID))
	assert.Contains(t, f.msg.Last().Text, "Phone")
	f.text(t, "555")
	assert.Equal(t, "555", f.contact(t, f.annaID).ExtraFields["Phone"])

	// state is gone after the write, so the same menu no longer works
	deletes := testutil.Buttons(menu, action(actionDelXtra))
	f.choose(t, deletes[0].Data)
	assert.Equal(t, msgStaleMenu, f.msg.Last().Text)
	assert.Equal(t, "Kyiv", f.contact(t, f.annaID).ExtraFields["City"])
}

func TestEditDeleteExtra(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionExtras, f.annaID))
	deletes := testutil.Buttons(f.msg.Last(), action(actionDelXtra))
	require.Len(t, deletes, 2)

	f.choose(t, deletes[0].Data)
	assert.Equal(t, map[string]string{"Phone": "123"}, f.contact(t, f.annaID).ExtraFields)
	assert.Contains(t, f.msg.Last().Text, "deleted")
}

func TestEditAddExtra(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionExtras, f.bobID))
	assert.Contains(t, f.msg.Last().Text, "no extra fields")

	f.choose(t, action(actionAddExtra, f.bobID))
	assert.Contains(t, f.msg.Deleted, chat.MessageRef{ChatID: userID, MessageID: 999})
	f.text(t, "Email")
	f.text(t, "bob@example.com")

	assert.Equal(t, map[string]string{"Email": "bob@example.com"}, f.contact(t, f.bobID).ExtraFields)
	assert.False(t, f.editor.Active(userID))
}

func TestEditWriteFailureDiscardsState(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionName, f.annaID))
	f.store.Fail("Update", true)

	f.text(t, "Annie")
	assert.False(t, f.editor.Active(userID))
	assert.Equal(t, msgSaveError, f.msg.Last().Text)
	assert.Equal(t, 0, f.writes)
	assert.Equal(t, "Anna", f.contact(t, f.annaID).Name)
}

func TestEditMissingContact(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionName, "gone"))
	f.text(t, "Someone")
	assert.Equal(t, msgNotFound, f.msg.Last().Text)

	f.choose(t, OpenData("gone"))
	assert.Equal(t, msgNotFound, f.msg.Last().Text)
}

func TestEditCloseAndCancel(t *testing.T) {
	f := newFixture(t)
	f.choose(t, action(actionBirthday, f.annaID))

	cancelled, err := f.editor.Cancel(f.ctx, userID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.False(t, f.editor.Active(userID))

	f.choose(t, OpenData(f.annaID))
	f.choose(t, action(actionClose, f.annaID))
	_, ok := f.sessions.Get(userID)
	assert.False(t, ok)
	assert.NotEmpty(t, f.msg.Deleted)
}

func TestEditIgnoresTextWithoutPendingEdit(t *testing.T) {
	f := newFixture(t)
	handled, err := f.editor.HandleText(f.ctx, chat.Event{UserID: userID, Text: "hello"})
	require.NoError(t, err)
	assert.False(t, handled)

	f.choose(t, OpenData(f.annaID))
	handled, err = f.editor.HandleText(f.ctx, chat.Event{UserID: userID, Text: "hello"})
	require.NoError(t, err)
	assert.False(t, handled)
}
