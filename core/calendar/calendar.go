// Package calendar implements work-hour arithmetic over a fixed weekly
// window (work_start_hour to work_end_hour, Monday through Friday). All
// functions are pure; the shop calendar is the only notion of time the
// scheduling engine and the simulator share.
package calendar

import (
	"fmt"
	"time"
)

// Config defines the working-hour window. Hours are in the timestamp's
// own location; weekends are always non-working.
type Config struct {
	WorkStartHour    int `json:"work_start_hour" yaml:"work_start_hour"`
	WorkEndHour      int `json:"work_end_hour" yaml:"work_end_hour"`
	MaxOvertimeHours int `json:"max_overtime_hours" yaml:"max_overtime_hours"`
}

// SetDefaults fills in the standard 08:00-17:00 window with 3h overtime.
func (c *Config) SetDefaults() {
	if c.WorkStartHour == 0 && c.WorkEndHour == 0 {
		c.WorkStartHour = 8
		c.WorkEndHour = 17
	}
	if c.MaxOvertimeHours == 0 {
		c.MaxOvertimeHours = 3
	}
}

// Validate checks that the window is a non-empty slice of a day.
func (c Config) Validate() error {
	if c.WorkStartHour < 0 || c.WorkStartHour > 23 {
		return fmt.Errorf("work_start_hour out of range: %d", c.WorkStartHour)
	}
	if c.WorkEndHour < 1 || c.WorkEndHour > 24 {
		return fmt.Errorf("work_end_hour out of range: %d", c.WorkEndHour)
	}
	if c.WorkEndHour <= c.WorkStartHour {
		return fmt.Errorf("work_end_hour (%d) must be after work_start_hour (%d)", c.WorkEndHour, c.WorkStartHour)
	}
	if c.MaxOvertimeHours < 0 {
		return fmt.Errorf("max_overtime_hours must not be negative: %d", c.MaxOvertimeHours)
	}
	return nil
}

// Calendar performs alignment, advancement and overtime arithmetic for a
// configured work window.
type Calendar struct {
	cfg Config
}

// New returns a Calendar for the given window.
func New(cfg Config) Calendar {
	return Calendar{cfg: cfg}
}

// WorkStartHour returns the configured start of the work day.
func (c Calendar) WorkStartHour() int { return c.cfg.WorkStartHour }

// WorkEndHour returns the configured end of the work day.
func (c Calendar) WorkEndHour() int { return c.cfg.WorkEndHour }

// MaxOvertimeHours returns the configured overtime tolerance.
func (c Calendar) MaxOvertimeHours() int { return c.cfg.MaxOvertimeHours }

// HoursPerDay returns the length of the regular work day in hours.
func (c Calendar) HoursPerDay() float64 {
	return float64(c.cfg.WorkEndHour - c.cfg.WorkStartHour)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// atHour truncates t to the top of the given hour, keeping its location.
func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// nextWorkday returns the start of the next working day after t.
func (c Calendar) nextWorkday(t time.Time) time.Time {
	next := atHour(t.AddDate(0, 0, 1), c.cfg.WorkStartHour)
	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// AlignToWorkStart moves t forward to the next moment work can begin.
// Minutes and seconds are truncated; a timestamp already inside the work
// window keeps its hour, falling back only across weekends.
func (c Calendar) AlignToWorkStart(t time.Time) time.Time {
	result := atHour(t, t.Hour())
	if result.Hour() < c.cfg.WorkStartHour {
		result = atHour(result, c.cfg.WorkStartHour)
	} else if result.Hour() >= c.cfg.WorkEndHour {
		result = c.nextWorkday(result)
	}
	for isWeekend(result) {
		result = result.AddDate(0, 0, 1)
	}
	return result
}

// AdvanceWorkHours consumes the given budget of hours inside the work
// window, skipping nights and weekends, and returns the moment the budget
// runs out. A non-positive budget returns t unchanged.
func (c Calendar) AdvanceWorkHours(t time.Time, hours float64) time.Time {
	remaining := hours
	current := t

	for remaining > 0 {
		if current.Hour() >= c.cfg.WorkEndHour {
			current = c.nextWorkday(current)
		}
		if current.Hour() < c.cfg.WorkStartHour {
			current = atHour(current, c.cfg.WorkStartHour)
		}
		for isWeekend(current) {
			current = current.AddDate(0, 0, 1)
		}

		dayEnd := atHour(current, c.cfg.WorkEndHour)
		available := dayEnd.Sub(current).Hours()
		if available <= 0 {
			current = c.nextWorkday(current)
			continue
		}

		if remaining <= available {
			current = current.Add(time.Duration(remaining * float64(time.Hour)))
			remaining = 0
		} else {
			remaining -= available
			current = c.nextWorkday(current)
		}
	}
	return current
}

// Overtime sums the portions of [start, end) falling at or after the work
// end hour, day by day. Time before the work start hour is deliberately
// not counted; the advancement functions never produce such timestamps.
func (c Calendar) Overtime(start, end time.Time) float64 {
	overtime := 0.0
	current := start
	for current.Before(end) {
		regularEnd := atHour(current, c.cfg.WorkEndHour)
		if !current.Before(regularEnd) {
			nextDay := c.nextWorkday(current)
			otEnd := end
			if nextDay.Before(otEnd) {
				otEnd = nextDay
			}
			overtime += otEnd.Sub(current).Hours()
			current = nextDay
		} else {
			if end.Before(regularEnd) {
				current = end
			} else {
				current = regularEnd
			}
		}
	}
	if overtime < 0 {
		return 0
	}
	return overtime
}
