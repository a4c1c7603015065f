// internal/domain/workhours/entity.go
package workhours

import (
	"time"

	"github.com/lib/pq"
)

// MinuteWindow is a daily window in minutes from midnight. Start is
// inclusive, End is exclusive; that convention holds for every window in
// this package.
type MinuteWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether the minute-of-day falls inside the window.
func (w MinuteWindow) Contains(minuteOfDay int) bool {
	return minuteOfDay >= w.Start && minuteOfDay < w.End
}

// Expand widens the window by buffer minutes on each side.
func (w MinuteWindow) Expand(buffer int) MinuteWindow {
	return MinuteWindow{Start: w.Start - buffer, End: w.End + buffer}
}

// Config is the per-company business-hours configuration. Loaded once and
// treated as immutable.
type Config struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Timezone  string `json:"timezone" db:"timezone"`

	// Working weekdays, time.Weekday numbering (0 = Sunday).
	WorkingDays pq.Int64Array `json:"working_days" db:"working_days"`

	StartHour int `json:"start_hour" db:"start_hour"`
	EndHour   int `json:"end_hour" db:"end_hour"`

	LunchBreak        MinuteWindow `json:"lunch_break" db:"-"`
	LunchBreakEnabled bool         `json:"lunch_break_enabled" db:"lunch_break_enabled"`

	FridayPrayer        MinuteWindow `json:"friday_prayer" db:"-"`
	FridayPrayerEnabled bool         `json:"friday_prayer_enabled" db:"friday_prayer_enabled"`

	// Buffer applied on each side of the daily prayer windows.
	PrayerBufferMinutes int `json:"prayer_buffer_minutes" db:"prayer_buffer_minutes"`

	// Explicit company holidays (dates, midnight in Timezone).
	Holidays []time.Time `json:"holidays" db:"-"`

	// Ramadan override: shortened hours, optional lunch suppression.
	RamadanStartHour int  `json:"ramadan_start_hour" db:"ramadan_start_hour"`
	RamadanEndHour   int  `json:"ramadan_end_hour" db:"ramadan_end_hour"`
	RamadanSkipLunch bool `json:"ramadan_skip_lunch" db:"ramadan_skip_lunch"`

	// Summer override: applies during SummerMonths only.
	SummerMonths    pq.Int64Array `json:"summer_months" db:"summer_months"`
	SummerStartHour int           `json:"summer_start_hour" db:"summer_start_hour"`
	SummerEndHour   int           `json:"summer_end_hour" db:"summer_end_hour"`

	GraceMinutes int  `json:"grace_minutes" db:"grace_minutes"`
	StrictMode   bool `json:"strict_mode" db:"strict_mode"`

	// Hours in which sends are force-allowed regardless of any other rule.
	EmergencyHours pq.Int64Array `json:"emergency_hours" db:"emergency_hours"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsWorkingDay reports whether the weekday is configured as working.
func (c *Config) IsWorkingDay(d time.Weekday) bool {
	for _, wd := range c.WorkingDays {
		if time.Weekday(wd) == d {
			return true
		}
	}
	return false
}

// IsSummerMonth reports whether the month falls under the summer override.
func (c *Config) IsSummerMonth(m time.Month) bool {
	for _, sm := range c.SummerMonths {
		if time.Month(sm) == m {
			return true
		}
	}
	return false
}

// IsEmergencyHour reports whether the hour is in the force-allow list.
func (c *Config) IsEmergencyHour(h int) bool {
	for _, eh := range c.EmergencyHours {
		if int(eh) == h {
			return true
		}
	}
	return false
}

// Location resolves the configured timezone, defaulting to Asia/Dubai on a
// bad identifier.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation("Asia/Dubai")
	}
	return loc
}

// DefaultConfig is the UAE baseline used when a company has not customized
// its settings: Mon-Fri 09:00-18:00, lunch 13:00-14:00, Friday prayer
// 12:00-13:30, 15 minute prayer buffer, 30 minute grace.
func DefaultConfig(companyID int64) *Config {
	return &Config{
		CompanyID:           companyID,
		Timezone:            "Asia/Dubai",
		WorkingDays:         pq.Int64Array{1, 2, 3, 4, 5},
		StartHour:           9,
		EndHour:             18,
		LunchBreak:          MinuteWindow{Start: 13 * 60, End: 14 * 60},
		LunchBreakEnabled:   true,
		FridayPrayer:        MinuteWindow{Start: 12 * 60, End: 13*60 + 30},
		FridayPrayerEnabled: true,
		PrayerBufferMinutes: 15,
		RamadanStartHour:    9,
		RamadanEndHour:      15,
		RamadanSkipLunch:    true,
		SummerMonths:        pq.Int64Array{7, 8},
		SummerStartHour:     8,
		SummerEndHour:       16,
		GraceMinutes:        30,
		EmergencyHours:      pq.Int64Array{},
	}
}

// ContextInfo is produced on every resolver call, successful or not, for
// observability.
type ContextInfo struct {
	CurrentHour   int  `json:"current_hour"`
	WorkingDay    bool `json:"working_day"`
	Ramadan       bool `json:"ramadan"`
	Summer        bool `json:"summer"`
	LunchBreak    bool `json:"lunch_break"`
	PrayerTime    bool `json:"prayer_time"`
	Holiday       bool `json:"holiday"`
	GraceActive   bool `json:"grace_active"`
	EmergencyHour bool `json:"emergency_hour"`
}

// TimeCheck is the resolver verdict for a single instant.
type TimeCheck struct {
	WithinHours   bool        `json:"within_hours"`
	Reason        string      `json:"reason,omitempty"`
	NextAvailable *time.Time  `json:"next_available,omitempty"`
	Context       ContextInfo `json:"context"`
}
