// Package calendar maps laundry date keys and time-of-day markers onto the
// facility's local calendar.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"dormly/pkg/model"
)

const (
	DateKeyLayout = "2006-01-02"

	LabelToday    = "Today"
	LabelTomorrow = "Tomorrow"
)

var (
	ErrInvalidDateKey = errors.New("date key must be in YYYY-MM-DD format")

	hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// ParseDateKey returns local midnight of dateKey in loc.
func ParseDateKey(dateKey string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, dateKey, loc)
	if err != nil || t.Format(DateKeyLayout) != dateKey {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, dateKey)
	}
	return t, nil
}

func DateKeyOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateKeyLayout)
}

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Window lists the bookable days starting today. The first two days are
// labelled Today and Tomorrow, the rest by short weekday name.
func Window(now time.Time, loc *time.Location, days int) []model.BookableDay {
	today := Midnight(now, loc)
	window := make([]model.BookableDay, 0, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i)
		label := d.Weekday().String()[:3]
		switch i {
		case 0:
			label = LabelToday
		case 1:
			label = LabelTomorrow
		}
		window = append(window, model.BookableDay{
			DateKey: d.Format(DateKeyLayout),
			Label:   label,
		})
	}
	return window
}

// InWindow reports whether dateKey falls within today..today+days-1.
func InWindow(dateKey string, now time.Time, loc *time.Location, days int) bool {
	d, err := ParseDateKey(dateKey, loc)
	if err != nil {
		return false
	}
	today := Midnight(now, loc)
	return !d.Before(today) && d.Before(today.AddDate(0, 0, days))
}

// DayLabel names a day relative to now: Today for the current day, otherwise
// the full weekday name.
func DayLabel(dateKey string, now time.Time, loc *time.Location) string {
	if dateKey == DateKeyOf(now, loc) {
		return LabelToday
	}
	d, err := ParseDateKey(dateKey, loc)
	if err != nil {
		return dateKey
	}
	return d.Weekday().String()
}

func ValidHHMM(s string) bool {
	return hhmmRegex.MatchString(s)
}

// FormatTime renders a zero-padded 24-hour "HH:MM" marker as "7:00 AM".
// Anything else is returned unchanged.
func FormatTime(hhmm string) string {
	if !ValidHHMM(hhmm) {
		return hhmm
	}
	h, _ := strconv.Atoi(hhmm[:2])
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	switch {
	case h == 0:
		h = 12
	case h > 12:
		h -= 12
	}
	return fmt.Sprintf("%d:%s %s", h, hhmm[3:], ampm)
}

func FormatTimeRange(start, end string) string {
	return FormatTime(start) + " – " + FormatTime(end)
}
