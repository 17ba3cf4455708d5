package wizard

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

const userID = int64(100)

type fixture struct {
	ctx      context.Context
	store    *testutil.FlakyStore
	msg      *testutil.Messenger
	sessions *session.Store[State]
	wizard   *Wizard
	writes   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    testutil.NewFlakyStore(store.NewMemoryStore()),
		msg:      testutil.NewMessenger(),
		sessions: session.New[State]("create"),
	}
	clock := testutil.NewClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	f.wizard = New(f.store, f.msg, clock, f.sessions, func(int64) { f.writes++ })
	return f
}

func (f *fixture) text(t *testing.T, s string) {
	t.Helper()
	handled, err := f.wizard.HandleText(f.ctx, chat.Event{UserID: userID, Text: s})
	require.NoError(t, err)
	require.True(t, handled)
}

func (f *fixture) choose(t *testing.T, data string) {
	t.Helper()
	handled, err := f.wizard.HandleChoice(f.ctx, chat.Event{UserID: userID, Data: data})
	require.NoError(t, err)
	require.True(t, handled)
}

func (f *fixture) state(t *testing.T) State {
	t.Helper()
	st, ok := f.sessions.Get(userID)
	require.True(t, ok, "wizard should be armed")
	return st
}

func TestWizardCreatesContact(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	assert.Equal(t, StepName, f.state(t).Step)

	f.text(t, "Anna")
	assert.Equal(t, StepGroup, f.state(t).Step)
	assert.Len(t, testutil.Buttons(f.msg.Last(), choiceGroup), 4)

	f.choose(t, "add:group:friends")
	assert.Equal(t, StepBirthday, f.state(t).Step)

	f.text(t, "15.03.1990")
	assert.Equal(t, StepMoreChoice, f.state(t).Step)

	f.choose(t, choiceFinish)
	assert.False(t, f.wizard.Active(userID))
	assert.Equal(t, 1, f.writes)
	assert.Contains(t, f.msg.Last().Text, "Contact saved")

	all, err := f.store.ListAll(f.ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Anna", all[0].Name)
	assert.Equal(t, "Friends", all[0].Group)
	require.NotNil(t, all[0].Birthday)
	assert.Equal(t, "15.03.1990", *all[0].Birthday)
	assert.Nil(t, all[0].ExtraFields)
}

func TestWizardRejectsDuplicateName(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Add(f.ctx, userID, models.Contact{Name: "Anna"})
	require.NoError(t, err)

	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	assert.Equal(t, StepName, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "already exists")

	f.text(t, "anna")
	assert.Equal(t, StepGroup, f.state(t).Step)
	assert.Equal(t, "anna", f.state(t).Name)
}

func TestWizardValidatesName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))

	f.text(t, "   ")
	assert.Contains(t, f.msg.Last().Text, "cannot be empty")
	f.text(t, strings.Repeat("x", 33))
	assert.Contains(t, f.msg.Last().Text, "too long")
	assert.Equal(t, StepName, f.state(t).Step)
}

func TestWizardNameCheckFailureKeepsStep(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.store.Fail("QueryByField", true)

	f.text(t, "Anna")
	assert.Equal(t, StepName, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "Could not check")
}

func TestWizardGroupNeedsChoice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")

	f.text(t, "Friends")
	assert.Equal(t, StepGroup, f.state(t).Step)

	f.choose(t, "add:group:enemies")
	assert.Equal(t, StepGroup, f.state(t).Step)
	assert.Equal(t, msgUnavailable, f.msg.Last().Text)
}

func TestWizardBirthdayValidation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	f.choose(t, "add:group:family")

	f.text(t, "29.02.2001")
	assert.Equal(t, StepBirthday, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "does not exist")

	f.text(t, "01.01.2030")
	assert.Equal(t, StepBirthday, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "future")

	f.text(t, "tomorrow")
	assert.Equal(t, StepBirthday, f.state(t).Step)

	f.text(t, "31.02")
	st := f.state(t)
	assert.Equal(t, StepMoreChoice, st.Step)
	require.NotNil(t, st.Birthday)
	assert.Equal(t, "31.02.????", *st.Birthday)
}

func TestWizardExtraFieldsLastWriteWins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	f.choose(t, "add:group:colleagues")
	require.NoError(t, f.wizard.Skip(f.ctx, userID))

	f.choose(t, choiceMore)
	f.text(t, "Phone")
	assert.Equal(t, StepFieldValue, f.state(t).Step)
	f.text(t, "123")
	f.choose(t, choiceMore)
	f.text(t, "Phone")
	f.text(t, "456")
	f.choose(t, choiceMore)
	f.text(t, strings.Repeat("k", 65))
	assert.Equal(t, StepFieldName, f.state(t).Step)
	f.choose(t, choiceFinish)

	all, err := f.store.ListAll(f.ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Birthday)
	assert.Equal(t, map[string]string{"Phone": "456"}, all[0].ExtraFields)
}

func TestWizardKeepsBlankFieldValue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	f.choose(t, "add:group:colleagues")
	require.NoError(t, f.wizard.Skip(f.ctx, userID))

	f.choose(t, choiceMore)
	f.text(t, "Nickname")
	f.text(t, "   ")
	assert.Equal(t, StepMoreChoice, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "Field added: Nickname")
	f.choose(t, choiceFinish)

	all, err := f.store.ListAll(f.ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, map[string]string{"Nickname": ""}, all[0].ExtraFields)
}

func TestWizardBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	f.choose(t, "add:group:friends")
	f.text(t, "15.03")
	f.choose(t, choiceMore)
	f.text(t, "City")

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	st := f.state(t)
	assert.Equal(t, StepFieldName, st.Step)
	assert.Empty(t, st.CurrentFieldName)

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	assert.Equal(t, StepMoreChoice, f.state(t).Step)

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	st = f.state(t)
	assert.Equal(t, StepBirthday, st.Step)
	assert.Nil(t, st.Birthday)

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	st = f.state(t)
	assert.Equal(t, StepGroup, st.Step)
	assert.Empty(t, st.Group)

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	st = f.state(t)
	assert.Equal(t, StepName, st.Step)
	assert.Empty(t, st.Name)

	require.NoError(t, f.wizard.Back(f.ctx, userID))
	assert.False(t, f.wizard.Active(userID))
	assert.Equal(t, msgCancelled, f.msg.Last().Text)
}

func TestWizardSkipOutsideBirthdayStep(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))

	require.NoError(t, f.wizard.Skip(f.ctx, userID))
	assert.Equal(t, StepName, f.state(t).Step)
	assert.Contains(t, f.msg.Last().Text, "Nothing to skip")
}

func TestWizardCommitFailureDiscardsState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))
	f.text(t, "Anna")
	f.choose(t, "add:group:friends")
	require.NoError(t, f.wizard.Skip(f.ctx, userID))
	f.store.Fail("Add", true)

	f.choose(t, choiceFinish)
	assert.False(t, f.wizard.Active(userID))
	assert.Equal(t, 0, f.writes)
	assert.Contains(t, f.msg.Last().Text, "Could not save")
}

func TestWizardCancel(t *testing.T) {
	f := newFixture(t)

	cancelled, err := f.wizard.Cancel(f.ctx, userID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	require.NoError(t, f.wizard.Start(f.ctx, userID))
	cancelled, err = f.wizard.Cancel(f.ctx, userID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.False(t, f.wizard.Active(userID))
}

func TestWizardIgnoresOtherUsersAndForeignChoices(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wizard.Start(f.ctx, userID))

	handled, err := f.wizard.HandleText(f.ctx, chat.Event{UserID: userID + 1, Text: "Anna"})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = f.wizard.HandleChoice(f.ctx, chat.Event{UserID: userID, Data: "list:page:2"})
	require.NoError(t, err)
	assert.False(t, handled)
}
