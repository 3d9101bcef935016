/*
Package rota provides the core fill generation engine.

PURPOSE:
  This package contains the domain types and algorithms for generating
  monthly work schedules from weekly shift templates. Given a staff
  member, a target month, and their contract, the engine resolves which
  template week/day applies to each calendar date, converts template
  wall-clock times into absolute timestamps, overlays holidays and leave,
  classifies conflicts with existing records, and emits candidate records
  for persistence.

KEY CONCEPTS IN THIS FILE (types.go):
  - DateOnly:          A calendar date with no time-of-day component
  - WallClock:         A template-local time of day ("08:30")
  - Contract:          A staff member's employment terms and validity window
  - WeeklyTemplateRow: A raw weekly-table row (7 start/end pairs)
  - ScheduleTemplate:  One expanded per-day template entry
  - GeneratedRecord:   A candidate schedule record, not yet persisted

DESIGN PRINCIPLES:
  1. Date-only arithmetic: boundary dates are compared by calendar
     components, never by UTC instants, to avoid off-by-one-day drift.
  2. Typed boundary: raw rows are parsed into typed entities at the
     repository edge; the engine never sees untyped data.
  3. Immutability: a GeneratedRecord is never mutated after emission;
     it is either persisted or discarded.

SEE ALSO:
  - period.go:    Month boundaries and week/day resolution
  - weekchain.go: Calendar-week to template-week mapping
  - generator.go: Day-by-day record generation
*/
package rota

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE ONLY - Calendar date without time-of-day
// =============================================================================

// DateOnly is a calendar date compared by year/month/day only.
type DateOnly struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) DateOnly {
	return DateOnly{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date, using the calendar
// components of the given time in its own location.
func DateOf(t time.Time) DateOnly {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() DateOnly {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d DateOnly) Before(other DateOnly) bool        { return d.t.Before(other.t) }
func (d DateOnly) After(other DateOnly) bool         { return d.t.After(other.t) }
func (d DateOnly) Equal(other DateOnly) bool         { return d.t.Equal(other.t) }
func (d DateOnly) BeforeOrEqual(other DateOnly) bool { return !d.After(other) }
func (d DateOnly) AfterOrEqual(other DateOnly) bool  { return !d.Before(other) }
func (d DateOnly) IsZero() bool                      { return d.t.IsZero() }

// Arithmetic
func (d DateOnly) AddDays(n int) DateOnly   { return DateOnly{t: d.t.AddDate(0, 0, n)} }
func (d DateOnly) AddMonths(n int) DateOnly { return DateOnly{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d DateOnly) Year() int             { return d.t.Year() }
func (d DateOnly) Month() time.Month     { return d.t.Month() }
func (d DateOnly) Day() int              { return d.t.Day() }
func (d DateOnly) Weekday() time.Weekday { return d.t.Weekday() }

// At returns the absolute timestamp for this date at the given wall-clock
// time, in UTC.
func (d DateOnly) At(hour, minute int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

// Time returns the date as a midnight UTC instant.
func (d DateOnly) Time() time.Time { return d.t }

func (d DateOnly) String() string { return d.t.Format("2006-01-02") }

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (DateOnly, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DaysBetween returns the number of whole days from one date to another.
func DaysBetween(from, to DateOnly) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func StartOfMonth(d DateOnly) DateOnly { return NewDate(d.Year(), d.Month(), 1) }
func EndOfMonth(d DateOnly) DateOnly   { return StartOfMonth(d).AddMonths(1).AddDays(-1) }

// =============================================================================
// DAY NUMBERS AND WEEK START
// =============================================================================

// DayNumberOf maps the platform weekday to the 1..7 day-number convention
// used by the weekly tables: Monday=1 .. Saturday=6, Sunday=7. This mapping
// is fixed and never varies with the configured week start.
func DayNumberOf(d DateOnly) int {
	wd := d.Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// WeekStartDay selects which weekday begins a calendar week for
// week-numbering purposes. It uses the same 1..7 day-number convention.
type WeekStartDay int

const (
	WeekStartMonday   WeekStartDay = 1
	WeekStartSaturday WeekStartDay = 6
	WeekStartSunday   WeekStartDay = 7
)

func (w WeekStartDay) Valid() bool {
	return w == WeekStartMonday || w == WeekStartSaturday || w == WeekStartSunday
}

func (w WeekStartDay) String() string {
	switch w {
	case WeekStartMonday:
		return "monday"
	case WeekStartSaturday:
		return "saturday"
	case WeekStartSunday:
		return "sunday"
	default:
		return "weekstart(" + strconv.Itoa(int(w)) + ")"
	}
}

// =============================================================================
// WALL CLOCK - Template-local time of day
// =============================================================================

// WallClock is a template-local time of day, independent of any date.
type WallClock struct {
	Hour   int
	Minute int
}

func (w WallClock) MinutesOfDay() int { return w.Hour*60 + w.Minute }
func (w WallClock) IsZero() bool      { return w.Hour == 0 && w.Minute == 0 }

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// ParseWallClock parses "H:MM" or "HH:MM". An empty string parses to the
// zero value, which the template expansion treats as a non-working marker.
func ParseWallClock(s string) (WallClock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WallClock{}, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return WallClock{}, fmt.Errorf("invalid wall-clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return WallClock{}, fmt.Errorf("invalid wall-clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return WallClock{}, fmt.Errorf("invalid wall-clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return WallClock{}, fmt.Errorf("wall-clock time %q out of range", s)
	}
	return WallClock{Hour: h, Minute: m}, nil
}

// =============================================================================
// CONTRACT
// =============================================================================

// Contract holds a staff member's employment terms. Read-only to the engine.
type Contract struct {
	ID              string
	TemplateName    string
	ContractedHours decimal.Decimal
	Start           *DateOnly // nil = open start
	Finish          *DateOnly // nil = open finish
	Deleted         bool
	StaffID         string
	ManagerID       string
	GroupID         string

	// AutoSchedule opts the staff member into scheduled batch fills.
	AutoSchedule bool
}

// ActiveIn reports whether the contract is selectable for the given period:
// not deleted and its validity interval intersects [first, last].
func (c Contract) ActiveIn(first, last DateOnly) bool {
	if c.Deleted {
		return false
	}
	if c.Start != nil && c.Start.After(last) {
		return false
	}
	if c.Finish != nil && c.Finish.Before(first) {
		return false
	}
	return true
}

// =============================================================================
// WEEKLY TEMPLATE ROWS AND EXPANDED TEMPLATES
// =============================================================================

// DayTimes is one start/end pair of a weekly-table row.
type DayTimes struct {
	Start string
	End   string
}

// WeeklyTemplateRow is a raw weekly-table row: one row per contract per
// week per shift, carrying seven start/end pairs (Days[0] = Monday ..
// Days[6] = Sunday).
type WeeklyTemplateRow struct {
	ID           string
	ContractID   string
	Week         int
	Shift        int
	LunchMinutes int
	Deleted      bool
	Days         [7]DayTimes
}

// ScheduleTemplate is one expanded per-day template entry. Immutable per run.
type ScheduleTemplate struct {
	ContractID   string
	Week         int
	Shift        int
	Day          int // 1=Monday .. 7=Sunday
	Start        WallClock
	End          WallClock
	LunchMinutes int
}

// WorkedMinutes returns the template's span net of lunch. A shift ending at
// or before its start is treated as crossing midnight.
func (t ScheduleTemplate) WorkedMinutes() int {
	span := t.End.MinutesOfDay() - t.Start.MinutesOfDay()
	if span <= 0 {
		span += 24 * 60
	}
	return span - t.LunchMinutes
}

// =============================================================================
// HOLIDAYS AND LEAVE
// =============================================================================

type Holiday struct {
	Date  DateOnly
	Title string
}

// LeavePeriod is an inclusive date range of absence. An absent finish date
// means the period is open-ended.
type LeavePeriod struct {
	ID          string
	Start       DateOnly
	Finish      *DateOnly
	TypeOfLeave string
	Title       string
	Deleted     bool
}

// Contains reports whether the date falls inside the leave period. An
// open-ended period extends to the far future.
func (lp LeavePeriod) Contains(d DateOnly) bool {
	if d.Before(lp.Start) {
		return false
	}
	if lp.Finish == nil {
		return true
	}
	return d.BeforeOrEqual(*lp.Finish)
}

// =============================================================================
// EXISTING AND GENERATED RECORDS
// =============================================================================

// ExistingRecord is a schedule record already present in the store.
type ExistingRecord struct {
	ID           string
	Date         DateOnly
	Deleted      bool
	Checked      int
	ExportResult string
	ContractID   string
}

// Processed reports whether the record has been reviewed or exported.
// Processed records are immutable from the engine's perspective.
func (r ExistingRecord) Processed() bool {
	return r.Checked > 0 || (r.ExportResult != "" && r.ExportResult != "0")
}

// GeneratedRecord is a candidate schedule record for one day. Never mutated
// after emission: it is either persisted or discarded.
type GeneratedRecord struct {
	ID           string
	Date         DateOnly
	ShiftStart   time.Time
	ShiftEnd     time.Time
	LunchMinutes int
	ContractID   string
	StaffID      string
	ManagerID    string
	GroupID      string
	IsHoliday    bool
	LeaveType    string // empty = not on leave
	Title        string
}

// =============================================================================
// FILL PARAMETERS
// =============================================================================

// FillParams identifies one staff member's fill run: the target month and
// the scoping identifiers required by every repository lookup.
type FillParams struct {
	Date         DateOnly // any date inside the target month
	StaffID      string
	StaffName    string
	AutoSchedule bool
	ManagerID    string
	GroupID      string
	WeekStart    WeekStartDay
}

// Validate rejects missing or sentinel identifiers before any I/O happens.
func (p FillParams) Validate() error {
	if p.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "missing target month"}
	}
	if p.StaffID == "" || p.StaffID == "0" {
		return &ValidationError{Field: "staffId", Reason: "missing staff member id"}
	}
	if p.ManagerID == "" || p.ManagerID == "0" {
		return &ValidationError{Field: "managerId", Reason: "missing manager id"}
	}
	if p.GroupID == "" || p.GroupID == "0" {
		return &ValidationError{Field: "groupId", Reason: "missing group id"}
	}
	if !p.WeekStart.Valid() {
		return &ValidationError{Field: "weekStartDay", Reason: "must be monday, saturday or sunday"}
	}
	return nil
}
