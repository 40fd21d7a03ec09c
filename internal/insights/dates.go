package insights

import "time"

const dateLayout = "2006-01-02"

// dateKey renders a UTC calendar-day key.
func dateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// dayStart truncates to UTC midnight.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysInRange enumerates every UTC calendar day in [from, to], ascending. An
// inverted range yields nil.
func daysInRange(from, to time.Time) []time.Time {
	start := dayStart(from)
	end := dayStart(to)
	if end.Before(start) {
		return nil
	}

	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}
