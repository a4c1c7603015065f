// internal/repository/postgres/workhours_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/workhours"
	xerrors "tahseel-service/internal/pkg/errors"
)

type WorkHoursRepository struct {
	db *pgxpool.Pool
}

func NewWorkHoursRepository(db *pgxpool.Pool) *WorkHoursRepository {
	return &WorkHoursRepository{db: db}
}

// FindByCompany loads a company's business-hours configuration. Window
// columns are stored as minutes from midnight.
func (r *WorkHoursRepository) FindByCompany(ctx context.Context, companyID int64) (*workhours.Config, error) {
	query := `
		SELECT id, company_id, timezone, working_days,
		       start_hour, end_hour,
		       lunch_start_min, lunch_end_min, lunch_break_enabled,
		       friday_prayer_start_min, friday_prayer_end_min, friday_prayer_enabled,
		       prayer_buffer_minutes,
		       ramadan_start_hour, ramadan_end_hour, ramadan_skip_lunch,
		       summer_months, summer_start_hour, summer_end_hour,
		       grace_minutes, strict_mode, emergency_hours,
		       created_at, updated_at
		FROM work_hours_configs
		WHERE company_id = $1
	`

	var cfg workhours.Config
	err := r.db.QueryRow(ctx, query, companyID).Scan(
		&cfg.ID, &cfg.CompanyID, &cfg.Timezone, &cfg.WorkingDays,
		&cfg.StartHour, &cfg.EndHour,
		&cfg.LunchBreak.Start, &cfg.LunchBreak.End, &cfg.LunchBreakEnabled,
		&cfg.FridayPrayer.Start, &cfg.FridayPrayer.End, &cfg.FridayPrayerEnabled,
		&cfg.PrayerBufferMinutes,
		&cfg.RamadanStartHour, &cfg.RamadanEndHour, &cfg.RamadanSkipLunch,
		&cfg.SummerMonths, &cfg.SummerStartHour, &cfg.SummerEndHour,
		&cfg.GraceMinutes, &cfg.StrictMode, &cfg.EmergencyHours,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find work hours config: %w", err)
	}

	if err := r.loadHolidays(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *WorkHoursRepository) loadHolidays(ctx context.Context, cfg *workhours.Config) error {
	rows, err := r.db.Query(
		ctx,
		`SELECT holiday_date FROM company_holidays WHERE company_id = $1 ORDER BY holiday_date`,
		cfg.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to query company holidays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("failed to scan holiday: %w", err)
		}
		cfg.Holidays = append(cfg.Holidays, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read company holidays: %w", err)
	}
	return nil
}
