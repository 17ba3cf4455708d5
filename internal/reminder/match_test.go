package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsBot/internal/contact/models"
)

func bday(s string) *string { return &s }

func TestMatchWeekBefore(t *testing.T) {
	today := time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)
	contacts := []models.Contact{
		{Name: "Anna", Birthday: bday("15.03.1990")},
		{Name: "NoBirthday"},
	}

	got := Match(today, contacts, map[string]bool{"week_before": true})
	require.Len(t, got, 1)
	assert.Equal(t, "week_before", got[0].Offset.Key)
	assert.Equal(t, []string{"Anna"}, got[0].Names)
}

func TestMatchIgnoresYearAndDisabledOffsets(t *testing.T) {
	today := time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC)
	contacts := []models.Contact{
		{Name: "NewYear", Birthday: bday("01.01.????")},
		{Name: "Eve", Birthday: bday("31.12.1970")},
		{Name: "Broken", Birthday: bday("garbage")},
	}

	got := Match(today, contacts, map[string]bool{
		"same_day":     true,
		"day_before":   true,
		"month_before": false,
	})
	require.Len(t, got, 2)
	assert.Equal(t, "same_day", got[0].Offset.Key)
	assert.Equal(t, []string{"Eve"}, got[0].Names)
	assert.Equal(t, "day_before", got[1].Offset.Key)
	assert.Equal(t, []string{"NewYear"}, got[1].Names)
}

func TestMatchCanonicalOrder(t *testing.T) {
	today := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	contacts := []models.Contact{
		{Name: "Far", Birthday: bday("02.03")},
		{Name: "Month", Birthday: bday("31.01")},
		{Name: "Soon", Birthday: bday("04.01")},
	}
	enabled := map[string]bool{}
	for _, o := range Offsets {
		enabled[o.Key] = true
	}

	got := Match(today, contacts, enabled)
	var keys []string
	for _, b := range got {
		keys = append(keys, b.Offset.Key)
	}
	assert.Equal(t, []string{"three_days_before", "month_before", "two_months_before"}, keys)
}

func TestCompose(t *testing.T) {
	assert.Empty(t, Compose(nil))

	week, _ := OffsetByKey("week_before")
	text := Compose([]Bucket{{Offset: week, Names: []string{"Anna", "<Bob>"}}})
	assert.Contains(t, text, "<b>In a week it is the birthday of:</b>\n🎉 <b>Anna</b>\n🎉 <b>&lt;Bob&gt;</b>")
}

func TestOffsetsCatalogue(t *testing.T) {
	want := map[string]int{
		"same_day": 0, "day_before": 1, "three_days_before": 3, "week_before": 7,
		"two_weeks_before": 14, "month_before": 30, "two_months_before": 60,
	}
	require.Len(t, Offsets, len(want))
	for i, o := range Offsets {
		assert.Equal(t, want[o.Key], o.Days, o.Key)
		if i > 0 {
			assert.Greater(t, o.Days, Offsets[i-1].Days)
		}
	}
	_, ok := OffsetByKey("year_before")
	assert.False(t, ok)
}
