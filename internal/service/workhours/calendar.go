// internal/service/workhours/calendar.go
package workhours

import "time"

// CalendarProvider resolves Ramadan periods and fixed national holidays.
// The default implementation is a year-keyed approximation of the lunar
// calendar; deployments that need observed dates can plug in their own
// provider.
type CalendarProvider interface {
	// RamadanPeriod returns the Ramadan date range for a Gregorian year.
	// Both bounds are dates (midnight); the range is inclusive on both ends.
	RamadanPeriod(year int) (start, end time.Time, ok bool)

	// NationalHolidays returns the fixed public holiday dates for a year.
	NationalHolidays(year int) []time.Time
}

// ApproximateCalendar is the default year-keyed lunar approximation.
// Known accuracy gap: actual Ramadan start depends on moon sighting and can
// differ by a day from these ranges.
type ApproximateCalendar struct{}

func NewApproximateCalendar() *ApproximateCalendar {
	return &ApproximateCalendar{}
}

var ramadanRanges = map[int][2]string{
	2024: {"2024-03-11", "2024-04-09"},
	2025: {"2025-03-01", "2025-03-30"},
	2026: {"2026-02-18", "2026-03-19"},
	2027: {"2027-02-08", "2027-03-09"},
	2028: {"2028-01-28", "2028-02-26"},
}

func (a *ApproximateCalendar) RamadanPeriod(year int) (time.Time, time.Time, bool) {
	r, ok := ramadanRanges[year]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse("2006-01-02", r[0])
	end, err2 := time.Parse("2006-01-02", r[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// NationalHolidays returns New Year's Day and the two National Day dates.
// Eid holidays follow the lunar calendar and are expected in the company's
// explicit holiday list instead.
func (a *ApproximateCalendar) NationalHolidays(year int) []time.Time {
	return []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 2, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 3, 0, 0, 0, 0, time.UTC),
	}
}

// sameDate compares two instants by calendar date only, ignoring location
// offsets on the reference side.
func sameDate(local time.Time, date time.Time) bool {
	y1, m1, d1 := local.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// dateWithin reports whether the local calendar date falls inside
// [start, end], comparing dates only.
func dateWithin(local, start, end time.Time) bool {
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ys, ms, ds := start.Date()
	ye, me, de := end.Date()
	s := time.Date(ys, ms, ds, 0, 0, 0, 0, time.UTC)
	e := time.Date(ye, me, de, 0, 0, 0, 0, time.UTC)
	return !day.Before(s) && !day.After(e)
}
