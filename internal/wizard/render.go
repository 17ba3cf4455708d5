package wizard

import (
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"

	"contactsBot/internal/chat"
	"contactsBot/internal/contact"
)

func summary(st State) string {
	bday := "Not set"
	if st.Birthday != nil {
		bday = *st.Birthday
	}
	return fmt.Sprintf("👤 Name: %s\n👥 Group: %s\n🎂 Birthday: %s",
		html.EscapeString(st.Name), html.EscapeString(st.Group), bday)
}

// extrasBlock lists extra fields in key order, followed by a blank line; empty when there are none.
func extrasBlock(extra map[string]string) string {
	if len(extra) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("📎 Extra fields:\n")
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(k), html.EscapeString(extra[k]))
	}
	b.WriteString("\n")
	return b.String()
}

func groupKeyboard() chat.Keyboard {
	var kb chat.Keyboard
	var row []chat.Button
	for _, g := range contact.Groups {
		row = append(row, chat.Button{Text: g.Icon + " " + g.Label, Data: choiceGroup + g.Key})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return kb
}

func moreChoiceKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: "➡️ Yes, add a field", Data: choiceMore}),
		chat.Row(chat.Button{Text: "✅ No, finish", Data: choiceFinish}),
	}
}
