package timeseries

import "time"

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves a month-start timestamp n calendar months.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// MonthsBetween returns the number of calendar months from a to b,
// negative when b precedes a.
func MonthsBetween(a, b time.Time) int {
	a, b = MonthStart(a), MonthStart(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// MonthRange returns the month starts following after, one per step.
func MonthRange(after time.Time, steps int) []time.Time {
	if steps < 1 {
		return nil
	}
	out := make([]time.Time, steps)
	for i := range out {
		out[i] = AddMonths(after, i+1)
	}
	return out
}
