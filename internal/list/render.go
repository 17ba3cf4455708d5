package list

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact/models"
)

// render builds the list message for v and records the group buttons and clamped page in v.
func render(contacts []models.Contact, v *View) (string, chat.Keyboard) {
	groups, counts := Groups(contacts)
	if len(groups) > maxGroupButtons {
		groups = groups[:maxGroupButtons]
	}
	v.Groups = groups
	v.Selected = v.Selected.Within(groups)

	entries := Order(contacts, v.Selected)
	page := Paginate(entries, v.Page, PageSize)
	v.Page = page.Number

	var kb chat.Keyboard
	var row []chat.Button
	for i, g := range groups {
		mark := "▫️"
		if v.Selected.Includes(g) {
			mark = "✅"
		}
		row = append(row, chat.Button{
			Text: fmt.Sprintf("%s %s (%d)", mark, g, counts[g]),
			Data: choice(actToggle, i),
		})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}

	if len(entries) == 0 {
		return "ℹ️ No contacts found.", kb
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📇 Your contacts (showing %d of %d):\n\n", len(page.Items), len(entries))
	last := ""
	row = nil
	for i, e := range page.Items {
		if e.Group != last {
			fmt.Fprintf(&b, "Group \"%s\":\n", html.EscapeString(e.Group))
			last = e.Group
		}
		fmt.Fprintf(&b, "   %d. 👤 %s\n", i+1, html.EscapeString(orDash(e.Contact.Name)))

		row = append(row, chat.Button{Text: strconv.Itoa(i + 1), Data: choice(actDetails, page.Start+i)})
		if len(row) == 5 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	b.WriteString("\nPick a group or tap a number for details 👇")

	if page.Total > 1 {
		prev := chat.Button{Text: " ", Data: NoopData}
		if page.Number > 1 {
			prev = chat.Button{Text: "⬅️ Back", Data: choice(actPage, page.Number-1)}
		}
		next := chat.Button{Text: " ", Data: NoopData}
		if page.Number < page.Total {
			next = chat.Button{Text: "Next ➡️", Data: choice(actPage, page.Number+1)}
		}
		kb = append(kb, chat.Row(prev, chat.Button{Text: fmt.Sprintf("Page %d/%d", page.Number, page.Total), Data: NoopData}, next))
	}
	return b.String(), kb
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
