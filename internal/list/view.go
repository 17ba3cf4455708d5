package list

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"contactsBot/internal/contact"
	"contactsBot/internal/contact/models"
)

// PageSize is the number of contacts on one page.
const PageSize = 10

// Selection is the set of groups shown. An empty selection means every group.
type Selection []string

// All reports whether every group is shown.
func (s Selection) All() bool {
	return len(s) == 0
}

// Includes reports whether contacts of group are shown.
func (s Selection) Includes(group string) bool {
	return s.All() || slices.Contains(s, group)
}

// Toggle returns the selection after the user pressed group's filter button.
// Toggling the only selected group returns to all groups; toggling from all groups narrows to
// that one group; otherwise group's membership flips, and an empty result means all groups.
func (s Selection) Toggle(group string) Selection {
	switch {
	case len(s) == 1 && s[0] == group:
		return nil
	case s.All():
		return Selection{group}
	}
	if i := slices.Index(s, group); i >= 0 {
		out := slices.Delete(slices.Clone(s), i, i+1)
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return append(slices.Clone(s), group)
}

// Within drops the groups that are not among present. A selection left with nothing shows
// every group again.
func (s Selection) Within(present []string) Selection {
	var out Selection
	for _, g := range s {
		if slices.Contains(present, g) {
			out = append(out, g)
		}
	}
	return out
}

// Entry is one contact of the ordered list with the group it is shown under.
type Entry struct {
	Contact models.Contact
	Group   string
}

// sortGroups orders group labels the way a Ukrainian reader expects, ignoring case.
func sortGroups(groups []string) {
	// collators keep internal buffers and are not safe for concurrent use
	collate.New(language.Ukrainian, collate.IgnoreCase).SortStrings(groups)
}

// Groups returns every group present in contacts, ordered, with its contact count.
func Groups(contacts []models.Contact) ([]string, map[string]int) {
	counts := make(map[string]int)
	var groups []string
	for _, c := range contacts {
		g := contact.DisplayGroup(c)
		if counts[g] == 0 {
			groups = append(groups, g)
		}
		counts[g]++
	}
	sortGroups(groups)
	return groups, counts
}

// Order filters contacts by sel and orders them by group, then by creation time.
// Contacts without a creation time come first within their group.
func Order(contacts []models.Contact, sel Selection) []Entry {
	byGroup := make(map[string][]models.Contact)
	var groups []string
	for _, c := range contacts {
		g := contact.DisplayGroup(c)
		if !sel.Includes(g) {
			continue
		}
		if _, seen := byGroup[g]; !seen {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], c)
	}
	sortGroups(groups)

	var out []Entry
	for _, g := range groups {
		members := byGroup[g]
		slices.SortStableFunc(members, func(a, b models.Contact) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		for _, c := range members {
			out = append(out, Entry{Contact: c, Group: g})
		}
	}
	return out
}

// Page is one page of an ordered list.
type Page struct {
	Number int
	Total  int
	// Start is the global index of the first item.
	Start int
	Items []Entry
}

// Paginate cuts page number out of entries, clamping number into [1, Total].
func Paginate(entries []Entry, number, size int) Page {
	total := max(1, (len(entries)+size-1)/size)
	number = min(max(number, 1), total)
	start := (number - 1) * size
	end := min(start+size, len(entries))
	if start > end {
		start = end
	}
	return Page{Number: number, Total: total, Start: start, Items: entries[start:end]}
}
