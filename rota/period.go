package rota

// =============================================================================
// PERIOD - Generation window for one month
// =============================================================================

// Period is the inclusive generation window for one fill run.
type Period struct {
	First     DateOnly
	Last      DateOnly
	TotalDays int
}

func (p Period) Contains(d DateOnly) bool {
	return d.AfterOrEqual(p.First) && d.BeforeOrEqual(p.Last)
}

func (p Period) String() string {
	return "[" + p.First.String() + ", " + p.Last.String() + "]"
}

// MonthPeriod computes the generation window for the month containing
// selected, clamped to the contract's validity: the window starts at the
// later of month-start and contractStart, and ends at the earlier of
// month-end and contractFinish. Boundary dates are date-only and derived
// from calendar components, never from UTC day-of-month.
func MonthPeriod(selected DateOnly, contractStart, contractFinish *DateOnly) (Period, error) {
	first := StartOfMonth(selected)
	last := EndOfMonth(selected)

	if contractStart != nil && contractStart.After(first) {
		first = *contractStart
	}
	if contractFinish != nil && contractFinish.Before(last) {
		last = *contractFinish
	}
	if last.Before(first) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{First: first, Last: last, TotalDays: DaysBetween(first, last) + 1}, nil
}

// =============================================================================
// WEEK AND DAY RESOLUTION
// =============================================================================

// MonthPosition locates one calendar date within the month's week grid.
type MonthPosition struct {
	CalendarWeek int // 1-based week of the month under the configured week start
	TemplateWeek int // chained template week, see ResolveTemplateWeek
	DayNumber    int // 1=Monday .. 7=Sunday, fixed regardless of week start
}

// WeekAndDay resolves a date to its calendar week, template week and day
// number. The day number always uses the fixed Sunday=7 mapping; only the
// week-boundary calculation varies with weekStart.
func WeekAndDay(date, startOfMonth DateOnly, weekStart WeekStartDay, templateWeekCount int) MonthPosition {
	dayNumber := DayNumberOf(date)

	// Index of the first-of-month within a week that begins on weekStart.
	adjustedFirstDay := (DayNumberOf(startOfMonth) - int(weekStart) + 7) % 7

	calendarWeek := (date.Day()-1+adjustedFirstDay)/7 + 1

	return MonthPosition{
		CalendarWeek: calendarWeek,
		TemplateWeek: ResolveTemplateWeek(calendarWeek, templateWeekCount),
		DayNumber:    dayNumber,
	}
}
