package contact

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsBot/internal/contact/models"
	"contactsBot/internal/store"
)

func TestValidateText(t *testing.T) {
	assert.ErrorIs(t, ValidateText("", MaxNameLenCreate), ErrNameEmpty)
	assert.NoError(t, ValidateText(strings.Repeat("a", 32), MaxNameLenCreate))
	assert.ErrorIs(t, ValidateText(strings.Repeat("a", 33), MaxNameLenCreate), ErrNameTooLong)
	// length counts characters, not bytes
	assert.NoError(t, ValidateText(strings.Repeat("я", 32), MaxNameLenCreate))
	assert.NoError(t, ValidateText(strings.Repeat("a", 64), MaxNameLenEdit))
}

func TestCheckNameFree(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	annaID, err := st.Add(ctx, 1, models.Contact{Name: "Anna"})
	require.NoError(t, err)
	bobID, err := st.Add(ctx, 1, models.Contact{Name: "Bob"})
	require.NoError(t, err)

	assert.ErrorIs(t, CheckNameFree(ctx, st, 1, "Anna", ""), ErrNameTaken)
	assert.NoError(t, CheckNameFree(ctx, st, 1, "anna", ""), "comparison is case-sensitive")
	assert.NoError(t, CheckNameFree(ctx, st, 2, "Anna", ""), "names are unique per user")
	assert.NoError(t, CheckNameFree(ctx, st, 1, "Anna", annaID), "own name is allowed")
	assert.ErrorIs(t, CheckNameFree(ctx, st, 1, "Anna", bobID), ErrNameTaken)
}

func TestGroupByKey(t *testing.T) {
	g, ok := GroupByKey("family")
	assert.True(t, ok)
	assert.Equal(t, "Family", g.Label)

	_, ok = GroupByKey("enemies")
	assert.False(t, ok)
}
