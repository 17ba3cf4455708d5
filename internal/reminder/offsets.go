package reminder

// Offset is a named number of days before a birthday on which to remind.
type Offset struct {
	Key  string
	Days int
	// Label names the offset in the settings menu.
	Label string
	// Heading introduces the matched names in a reminder.
	Heading string
}

// Offsets lists every offset, soonest first. Reminders present their buckets in this order.
var Offsets = []Offset{
	{Key: "same_day", Days: 0, Label: "Same day", Heading: "Today is the birthday of"},
	{Key: "day_before", Days: 1, Label: "A day before", Heading: "Tomorrow is the birthday of"},
	{Key: "three_days_before", Days: 3, Label: "3 days before", Heading: "In 3 days it is the birthday of"},
	{Key: "week_before", Days: 7, Label: "A week before", Heading: "In a week it is the birthday of"},
	{Key: "two_weeks_before", Days: 14, Label: "2 weeks before", Heading: "In 2 weeks it is the birthday of"},
	{Key: "month_before", Days: 30, Label: "A month before", Heading: "In a month it is the birthday of"},
	{Key: "two_months_before", Days: 60, Label: "2 months before", Heading: "In 2 months it is the birthday of"},
}

// OffsetByKey looks an offset up by its settings key.
func OffsetByKey(key string) (Offset, bool) {
	for _, o := range Offsets {
		if o.Key == key {
			return o, true
		}
	}
	return Offset{}, false
}
