// Package birthday validates user-entered birthdays and reads back their stored form.
package birthday

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"contactsBot/internal/contact/models"
)

var (
	ErrFormat     = errors.New("birthday must look like DD.MM or DD.MM.YYYY")
	ErrNoSuchDate = errors.New("no such date")
	ErrFuture     = errors.New("birthday is in the future")
)

var (
	inputPattern  = regexp.MustCompile(`^(\d{2})\.(\d{2})(?:\.(\d{4}))?$`)
	storedPattern = regexp.MustCompile(`^(\d{2})\.(\d{2})`)
)

// Clock abstracts time.Now() so that "today" is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in a fixed location.
type RealClock struct {
	Location *time.Location
}

func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Parse validates a birthday typed by the user and returns its stored form.
//
// With a year the date must exist (leap years included) and must not be after today.
// Without a year only the ranges day 1-31 and month 1-12 are checked, so 31.02 passes;
// the stored form then carries the UnknownYear marker.
func Parse(text string, now time.Time) (string, error) {
	m := inputPattern.FindStringSubmatch(text)
	if m == nil {
		return "", ErrFormat
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	if m[3] == "" {
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return "", ErrNoSuchDate
		}
		return fmt.Sprintf("%s.%s.%s", m[1], m[2], models.UnknownYear), nil
	}

	year, _ := strconv.Atoi(m[3])
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return "", ErrNoSuchDate
	}
	if date.After(now) {
		return "", ErrFuture
	}
	return text, nil
}

// DayMonth extracts day and month from a stored birthday; the year part is ignored.
func DayMonth(stored string) (day, month int, ok bool) {
	m := storedPattern.FindStringSubmatch(stored)
	if m == nil {
		return 0, 0, false
	}
	day, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	return day, month, true
}
