package utils

import "time"

const (
	// DayKeyLayout is how calendar days are stored.
	DayKeyLayout = "2006-01-02"
	// DateLayout is how users type and read dates.
	DateLayout = "02.01.2006"
)

// Clock returns the current instant; swapped in tests.
type Clock func() time.Time

// DayKey returns the calendar day of t in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// Today returns the day key of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return DayKey(now.In(loc))
}

// AddDays shifts a day key by n calendar days. Invalid keys are returned unchanged.
func AddDays(day string, n int) string {
	t, err := time.Parse(DayKeyLayout, day)
	if err != nil {
		return day
	}
	return DayKey(t.AddDate(0, 0, n))
}

// FormatDay renders a day key as DD.MM.YYYY.
func FormatDay(day string) string {
	t, err := time.Parse(DayKeyLayout, day)
	if err != nil {
		return day
	}
	return t.Format(DateLayout)
}

// SensitivityDays returns the three days feeding a sensitivity factor
// computed on anchor: anchor-3, anchor-2 and anchor-1, oldest first.
// The last one is the day the factor is stored under.
func SensitivityDays(anchor string) [3]string {
	return [3]string{AddDays(anchor, -3), AddDays(anchor, -2), AddDays(anchor, -1)}
}

// DayRange lists day keys from start through end inclusive.
func DayRange(start, end string) []string {
	var days []string
	for d := start; d <= end; d = AddDays(d, 1) {
		days = append(days, d)
		if len(days) > 366 {
			break
		}
	}
	return days
}
