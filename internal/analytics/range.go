package analytics

import "time"

// Range is a reporting window ending now.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	Range12m Range = "12m"

	DefaultRange = Range30d
)

// ParseRange falls back to DefaultRange for anything it does not know.
func ParseRange(s string) Range {
	switch r := Range(s); r {
	case Range7d, Range30d, Range90d, Range12m:
		return r
	}
	return DefaultRange
}

func (r Range) Start(now time.Time) time.Time {
	switch r {
	case Range7d:
		return now.AddDate(0, 0, -7)
	case Range90d:
		return now.AddDate(0, 0, -90)
	case Range12m:
		return now.AddDate(0, -12, 0)
	case Range30d:
	}
	return now.AddDate(0, 0, -30)
}

// HasDaily reports whether a per-day series is produced for the range.
func (r Range) HasDaily() bool {
	return r != Range12m
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
