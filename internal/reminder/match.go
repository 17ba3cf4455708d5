package reminder

import (
	"fmt"
	"html"
	"strings"
	"time"

	"contactsBot/internal/birthday"
	"contactsBot/internal/contact/models"
)

// Bucket holds the names whose birthday falls on today plus Offset.Days.
type Bucket struct {
	Offset Offset
	Names  []string
}

// Match returns one bucket per enabled offset that matched at least one contact, in the order
// of Offsets. Only day and month are compared, so a birthday matches every year; contacts
// without a readable birthday never match.
func Match(today time.Time, contacts []models.Contact, enabled map[string]bool) []Bucket {
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	var out []Bucket
	for _, o := range Offsets {
		if !enabled[o.Key] {
			continue
		}
		target := midnight.AddDate(0, 0, o.Days)
		var names []string
		for _, c := range contacts {
			if c.Birthday == nil {
				continue
			}
			day, month, ok := birthday.DayMonth(*c.Birthday)
			if ok && day == target.Day() && month == int(target.Month()) {
				names = append(names, c.Name)
			}
		}
		if len(names) > 0 {
			out = append(out, Bucket{Offset: o, Names: names})
		}
	}
	return out
}

// Compose renders the reminder for buckets as HTML. It returns "" when there is nothing to send.
func Compose(buckets []Bucket) string {
	if len(buckets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🎂 <b>Birthday reminders!</b>\n\n")
	for _, bk := range buckets {
		fmt.Fprintf(&b, "<b>%s:</b>\n", bk.Offset.Heading)
		for _, name := range bk.Names {
			fmt.Fprintf(&b, "🎉 <b>%s</b>\n", html.EscapeString(name))
		}
		b.WriteString("\n")
	}
	b.WriteString("Don't forget to send your wishes! 😉")
	return b.String()
}
