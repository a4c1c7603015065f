package workhours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tahseel-service/internal/domain/workhours"
)

func dubai(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)
	return loc
}

// Tuesday outside Ramadan, outside summer.
func tuesdayAt(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2025, time.June, 10, hour, minute, 0, 0, loc)
}

func TestCheck_RuleChain(t *testing.T) {
	loc := dubai(t)
	r := NewResolver(nil)

	tests := []struct {
		name       string
		cfg        func() *workhours.Config
		opts       CheckOptions
		at         time.Time
		wantWithin bool
		wantReason string
	}{
		{
			name:       "mid-morning on a working day is sendable",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         tuesdayAt(loc, 10, 0),
			wantWithin: true,
		},
		{
			name:       "lunch break blocks",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         tuesdayAt(loc, 13, 30),
			wantWithin: false,
			wantReason: "lunch break",
		},
		{
			name:       "dhuhr window with buffer blocks",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         tuesdayAt(loc, 12, 20),
			wantWithin: false,
			wantReason: "dhuhr prayer time",
		},
		{
			name:       "prayer windows can be waived",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			opts:       CheckOptions{IgnorePrayerTime: true},
			at:         tuesdayAt(loc, 12, 20),
			wantWithin: true,
		},
		{
			name:       "Friday prayer window blocks",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2025, time.June, 13, 12, 30, 0, 0, loc),
			wantWithin: false,
			wantReason: "Friday prayer",
		},
		{
			name:       "weekend blocks",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2025, time.June, 14, 10, 0, 0, 0, loc),
			wantWithin: false,
			wantReason: "outside working days",
		},
		{
			name:       "weekend can be waived",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			opts:       CheckOptions{AllowWeekends: true},
			at:         time.Date(2025, time.June, 14, 10, 0, 0, 0, loc),
			wantWithin: true,
		},
		{
			name:       "national holiday blocks",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2025, time.December, 2, 10, 0, 0, 0, loc),
			wantWithin: false,
			wantReason: "public holiday",
		},
		{
			name:       "holiday can be waived",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			opts:       CheckOptions{AllowHolidays: true},
			at:         time.Date(2025, time.December, 2, 10, 0, 0, 0, loc),
			wantWithin: true,
		},
		{
			name: "company holiday blocks",
			cfg: func() *workhours.Config {
				cfg := workhours.DefaultConfig(1)
				cfg.Holidays = []time.Time{time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)}
				return cfg
			},
			at:         tuesdayAt(loc, 10, 0),
			wantWithin: false,
			wantReason: "public holiday",
		},
		{
			name:       "grace window admits early sends",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         tuesdayAt(loc, 8, 45),
			wantWithin: true,
		},
		{
			name: "strict mode disables grace",
			cfg: func() *workhours.Config {
				cfg := workhours.DefaultConfig(1)
				cfg.StrictMode = true
				return cfg
			},
			at:         tuesdayAt(loc, 8, 45),
			wantWithin: false,
			wantReason: "outside business hours (09:00-18:00)",
		},
		{
			name: "emergency hour overrides every rule",
			cfg: func() *workhours.Config {
				cfg := workhours.DefaultConfig(1)
				cfg.EmergencyHours = []int64{20}
				return cfg
			},
			at:         tuesdayAt(loc, 20, 30),
			wantWithin: true,
		},
		{
			name:       "Ramadan shortens the working day",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2026, time.March, 2, 16, 30, 0, 0, loc),
			wantWithin: false,
			wantReason: "outside business hours (09:00-15:00)",
		},
		{
			name:       "Ramadan suppresses the lunch break",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2026, time.March, 2, 13, 30, 0, 0, loc),
			wantWithin: true,
		},
		{
			name:       "summer hours start earlier",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2025, time.July, 8, 8, 30, 0, 0, loc),
			wantWithin: true,
		},
		{
			name:       "summer hours end earlier",
			cfg:        func() *workhours.Config { return workhours.DefaultConfig(1) },
			at:         time.Date(2025, time.July, 8, 16, 30, 0, 0, loc),
			wantWithin: false,
			wantReason: "outside business hours (08:00-16:00)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Check(tt.cfg(), tt.opts, tt.at)
			assert.Equal(t, tt.wantWithin, res.WithinHours)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, res.Reason)
			}
			if !tt.wantWithin {
				assert.NotNil(t, res.NextAvailable, "rejections must propose a next instant")
			}
		})
	}
}

func TestCheck_ContextInfo(t *testing.T) {
	loc := dubai(t)
	r := NewResolver(nil)
	cfg := workhours.DefaultConfig(1)

	res := r.Check(cfg, CheckOptions{}, tuesdayAt(loc, 13, 30))
	assert.False(t, res.WithinHours)
	assert.True(t, res.Context.LunchBreak)
	assert.True(t, res.Context.WorkingDay)
	assert.False(t, res.Context.Ramadan)

	res = r.Check(cfg, CheckOptions{}, tuesdayAt(loc, 8, 45))
	assert.True(t, res.WithinHours)
	assert.True(t, res.Context.GraceActive)
}

func TestNextAvailable(t *testing.T) {
	loc := dubai(t)
	r := NewResolver(nil)
	cfg := workhours.DefaultConfig(1)

	t.Run("lunch resumes at the end of the break", func(t *testing.T) {
		next, err := r.NextAvailable(cfg, CheckOptions{}, tuesdayAt(loc, 13, 30))
		require.NoError(t, err)
		assert.Equal(t, tuesdayAt(loc, 14, 0), next)
	})

	t.Run("prayer window skips to the next clear hour", func(t *testing.T) {
		// 13:00 is lunch, so the search lands on 14:00.
		next, err := r.NextAvailable(cfg, CheckOptions{}, tuesdayAt(loc, 12, 20))
		require.NoError(t, err)
		assert.Equal(t, tuesdayAt(loc, 14, 0), next)
	})

	t.Run("evening rolls to the next working day", func(t *testing.T) {
		next, err := r.NextAvailable(cfg, CheckOptions{}, tuesdayAt(loc, 19, 0))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.June, 11, 9, 0, 0, 0, loc), next)
	})

	t.Run("Friday evening rolls over the weekend", func(t *testing.T) {
		from := time.Date(2025, time.June, 13, 18, 30, 0, 0, loc)
		next, err := r.NextAvailable(cfg, CheckOptions{}, from)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.June, 16, 9, 0, 0, 0, loc), next)
	})

	t.Run("search is bounded", func(t *testing.T) {
		blocked := workhours.DefaultConfig(1)
		blocked.WorkingDays = nil
		_, err := r.NextAvailable(blocked, CheckOptions{}, tuesdayAt(loc, 10, 0))
		assert.Error(t, err)
	})
}

func TestStepSendTime(t *testing.T) {
	loc := dubai(t)
	r := NewResolver(nil)
	cfg := workhours.DefaultConfig(1)

	t.Run("delay landing inside hours is kept", func(t *testing.T) {
		got, err := r.StepSendTime(cfg, CheckOptions{}, tuesdayAt(loc, 10, 0), 3)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.June, 13, 10, 0, 0, 0, loc), got)
	})

	t.Run("delay landing on a weekend is pushed forward", func(t *testing.T) {
		got, err := r.StepSendTime(cfg, CheckOptions{}, tuesdayAt(loc, 10, 0), 4)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.June, 16, 9, 0, 0, 0, loc), got)
	})
}
