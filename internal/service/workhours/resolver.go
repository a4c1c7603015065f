// internal/service/workhours/resolver.go
package workhours

import (
	"fmt"
	"time"

	"tahseel-service/internal/domain/workhours"
)

// maxSearchDays bounds the forward scan for the next sendable instant.
const maxSearchDays = 14

// prayerWindow is one of the five approximate daily prayer windows, in
// minutes from midnight.
type prayerWindow struct {
	name   string
	window workhours.MinuteWindow
}

var dailyPrayers = []prayerWindow{
	{"fajr", workhours.MinuteWindow{Start: 5 * 60, End: 5*60 + 20}},
	{"dhuhr", workhours.MinuteWindow{Start: 12*60 + 15, End: 12*60 + 35}},
	{"asr", workhours.MinuteWindow{Start: 15*60 + 30, End: 15*60 + 50}},
	{"maghrib", workhours.MinuteWindow{Start: 18*60 + 15, End: 18*60 + 35}},
	{"isha", workhours.MinuteWindow{Start: 19*60 + 45, End: 20*60 + 5}},
}

// CheckOptions relax individual rules for a single check. The zero value
// respects everything.
type CheckOptions struct {
	AllowWeekends    bool
	AllowHolidays    bool
	IgnorePrayerTime bool
}

// Resolver decides whether an instant is culturally and legally sendable
// under a company's business-hours configuration. Pure: the instant is
// always passed in, never read from a clock.
type Resolver struct {
	calendar CalendarProvider
}

func NewResolver(calendar CalendarProvider) *Resolver {
	if calendar == nil {
		calendar = NewApproximateCalendar()
	}
	return &Resolver{calendar: calendar}
}

// Check evaluates the instant and, when it is not sendable, computes the
// next sendable one. Context info is produced on every call.
func (r *Resolver) Check(cfg *workhours.Config, opts CheckOptions, t time.Time) workhours.TimeCheck {
	res := r.evaluate(cfg, opts, t)
	if !res.WithinHours {
		if next, err := r.NextAvailable(cfg, opts, t); err == nil {
			res.NextAvailable = &next
		}
	}
	return res
}

// evaluate applies the rule chain to a single instant without searching
// forward. Windows are start-inclusive, end-exclusive throughout.
func (r *Resolver) evaluate(cfg *workhours.Config, opts CheckOptions, t time.Time) workhours.TimeCheck {
	local := t.In(cfg.Location())
	hour := local.Hour()
	minuteOfDay := hour*60 + local.Minute()

	ramadan := r.inRamadan(local)
	summer := !ramadan && cfg.IsSummerMonth(local.Month())
	effStart, effEnd := effectiveHours(cfg, ramadan, summer)
	emergency := cfg.IsEmergencyHour(hour)

	info := workhours.ContextInfo{
		CurrentHour:   hour,
		WorkingDay:    cfg.IsWorkingDay(local.Weekday()),
		Ramadan:       ramadan,
		Summer:        summer,
		Holiday:       r.isHoliday(cfg, local),
		EmergencyHour: emergency,
	}

	// The emergency-override list trumps every rejection below.
	reject := func(reason string) workhours.TimeCheck {
		if emergency {
			return workhours.TimeCheck{WithinHours: true, Context: info}
		}
		return workhours.TimeCheck{WithinHours: false, Reason: reason, Context: info}
	}

	if !info.WorkingDay && !opts.AllowWeekends {
		return reject("outside working days")
	}
	if info.Holiday && !opts.AllowHolidays {
		return reject("public holiday")
	}

	// Grace window: only outside strict mode, on both edges of the
	// effective working hours.
	working := workhours.MinuteWindow{Start: effStart * 60, End: effEnd * 60}
	if !working.Contains(minuteOfDay) {
		grace := cfg.GraceMinutes
		if cfg.StrictMode {
			grace = 0
		}
		if grace > 0 && working.Expand(grace).Contains(minuteOfDay) {
			info.GraceActive = true
		} else {
			return reject(fmt.Sprintf("outside business hours (%02d:00-%02d:00)", effStart, effEnd))
		}
	}

	lunchActive := cfg.LunchBreakEnabled && !(ramadan && cfg.RamadanSkipLunch)
	if lunchActive && cfg.LunchBreak.Contains(minuteOfDay) {
		info.LunchBreak = true
		return reject("lunch break")
	}

	if !opts.IgnorePrayerTime {
		if cfg.FridayPrayerEnabled && local.Weekday() == time.Friday &&
			cfg.FridayPrayer.Contains(minuteOfDay) {
			info.PrayerTime = true
			return reject("Friday prayer")
		}
		for _, p := range dailyPrayers {
			if p.window.Expand(cfg.PrayerBufferMinutes).Contains(minuteOfDay) {
				info.PrayerTime = true
				return reject(fmt.Sprintf("%s prayer time", p.name))
			}
		}
	}

	return workhours.TimeCheck{WithinHours: true, Context: info}
}

// NextAvailable finds the next sendable instant strictly at or after from.
// Same-day rule: while the day still has at least an hour of working time
// left, skip past the blocking window (end of lunch, or the top of the
// next hour); otherwise jump to the next working, non-holiday day at its
// effective start. The search is bounded to 14 days.
func (r *Resolver) NextAvailable(cfg *workhours.Config, opts CheckOptions, from time.Time) (time.Time, error) {
	loc := cfg.Location()
	deadline := from.AddDate(0, 0, maxSearchDays)
	candidate := from

	// Generous cap: at most a handful of jumps per day over 14 days.
	for i := 0; i < maxSearchDays*30; i++ {
		if candidate.After(deadline) {
			break
		}
		if res := r.evaluate(cfg, opts, candidate); res.WithinHours {
			return candidate, nil
		}

		local := candidate.In(loc)
		ramadan := r.inRamadan(local)
		summer := !ramadan && cfg.IsSummerMonth(local.Month())
		_, effEnd := effectiveHours(cfg, ramadan, summer)
		minuteOfDay := local.Hour()*60 + local.Minute()

		sameDayViable := cfg.IsWorkingDay(local.Weekday()) &&
			!r.isHoliday(cfg, local) &&
			minuteOfDay < (effEnd-1)*60

		if sameDayViable {
			lunchActive := cfg.LunchBreakEnabled && !(ramadan && cfg.RamadanSkipLunch)
			if lunchActive && cfg.LunchBreak.Contains(minuteOfDay) {
				candidate = time.Date(local.Year(), local.Month(), local.Day(),
					cfg.LunchBreak.End/60, cfg.LunchBreak.End%60, 0, 0, loc)
			} else {
				candidate = time.Date(local.Year(), local.Month(), local.Day(),
					local.Hour()+1, 0, 0, 0, loc)
			}
			continue
		}

		candidate = r.nextWorkingDayStart(cfg, local)
	}

	return time.Time{}, fmt.Errorf("no sendable instant within %d days of %s", maxSearchDays, from.Format(time.RFC3339))
}

// StepSendTime schedules a follow-up step: the step delay is added first,
// then the result is pushed to the next sendable instant.
func (r *Resolver) StepSendTime(cfg *workhours.Config, opts CheckOptions, from time.Time, delayDays int) (time.Time, error) {
	target := from.AddDate(0, 0, delayDays)
	if res := r.evaluate(cfg, opts, target); res.WithinHours {
		return target, nil
	}
	return r.NextAvailable(cfg, opts, target)
}

// nextWorkingDayStart returns the next working, non-holiday day after the
// local day, at that day's effective start hour.
func (r *Resolver) nextWorkingDayStart(cfg *workhours.Config, local time.Time) time.Time {
	loc := cfg.Location()
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for i := 1; i <= maxSearchDays; i++ {
		next := day.AddDate(0, 0, i)
		if !cfg.IsWorkingDay(next.Weekday()) || r.isHoliday(cfg, next) {
			continue
		}
		ramadan := r.inRamadan(next)
		summer := !ramadan && cfg.IsSummerMonth(next.Month())
		effStart, _ := effectiveHours(cfg, ramadan, summer)
		return time.Date(next.Year(), next.Month(), next.Day(), effStart, 0, 0, 0, loc)
	}
	// Past the bound; the caller's deadline check terminates the search.
	return day.AddDate(0, 0, maxSearchDays+1)
}

func (r *Resolver) inRamadan(local time.Time) bool {
	for _, year := range []int{local.Year(), local.Year() - 1} {
		if start, end, ok := r.calendar.RamadanPeriod(year); ok && dateWithin(local, start, end) {
			return true
		}
	}
	return false
}

func (r *Resolver) isHoliday(cfg *workhours.Config, local time.Time) bool {
	for _, h := range cfg.Holidays {
		if sameDate(local, h) {
			return true
		}
	}
	for _, h := range r.calendar.NationalHolidays(local.Year()) {
		if sameDate(local, h) {
			return true
		}
	}
	return false
}

// effectiveHours applies the seasonal overrides; Ramadan takes priority
// over summer.
func effectiveHours(cfg *workhours.Config, ramadan, summer bool) (int, int) {
	switch {
	case ramadan && cfg.RamadanStartHour < cfg.RamadanEndHour:
		return cfg.RamadanStartHour, cfg.RamadanEndHour
	case summer && cfg.SummerStartHour < cfg.SummerEndHour:
		return cfg.SummerStartHour, cfg.SummerEndHour
	default:
		return cfg.StartHour, cfg.EndHour
	}
}
