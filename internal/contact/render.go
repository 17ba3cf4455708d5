package contact

import (
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"

	"contactsBot/internal/contact/models"
)

// DisplayGroup returns the group a contact is shown under.
func DisplayGroup(c models.Contact) string {
	if c.Group == "" {
		return DefaultGroup
	}
	return c.Group
}

// SortedExtraKeys returns the contact's extra field names in a stable order.
func SortedExtraKeys(c models.Contact) []string {
	return slices.Sorted(maps.Keys(c.ExtraFields))
}

// FormatDetails renders the full contact card as HTML.
func FormatDetails(c models.Contact, withCreated bool) string {
	var b strings.Builder
	b.WriteString("📋 <b>Contact details</b>\n\n")
	fmt.Fprintf(&b, "👤 <b>Name:</b> %s\n", html.EscapeString(orDash(c.Name)))
	fmt.Fprintf(&b, "👥 <b>Group:</b> %s\n", html.EscapeString(orDash(c.Group)))
	bday := "Not set"
	if c.Birthday != nil {
		bday = *c.Birthday
	}
	fmt.Fprintf(&b, "🎂 <b>Birthday:</b> %s\n", html.EscapeString(bday))

	if len(c.ExtraFields) > 0 {
		b.WriteString("\n📎 <b>Extra fields:</b>\n")
		for _, k := range SortedExtraKeys(c) {
			fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(k), html.EscapeString(c.ExtraFields[k]))
		}
	}

	if withCreated && !c.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\n🕒 <b>Created:</b> %s\n", c.CreatedAt.Format("02.01.2006 15:04"))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
