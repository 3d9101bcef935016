/*
template.go - Weekly template loading, expansion and indexing

PURPOSE:
  The backing store keeps one weekly-table row per contract per week per
  shift, with seven start/end pairs. The engine needs per-day lookups by
  (template week, day number). This file parses and filters the raw rows
  at the repository boundary and builds the lookup index.

NON-WORKING DAYS:
  A day whose start and end are both "00:00" (or blank) is a non-working
  day and produces no template entry. Generation later skips dates with
  no entry rather than emitting zero-hour records.

EMPTY RESULT:
  No non-deleted rows is a valid outcome, not an error. Callers must
  treat an empty index as a hard stop for generation; there is no
  fallback default template.
*/
package rota

import (
	"context"
	"sort"
)

// =============================================================================
// TEMPLATE INDEX
// =============================================================================

type templateKey struct {
	Week int
	Day  int
}

// TemplateIndex holds expanded templates keyed by (week, day), each slot
// ordered by shift number. Immutable once built.
type TemplateIndex struct {
	byDay     map[templateKey][]ScheduleTemplate
	weekCount int
	total     int
}

// LoadTemplateIndex loads the contract's weekly rows from the repository,
// filters deleted rows, expands them into per-day entries and indexes the
// result. Returns an empty (not nil) index when nothing remains.
func LoadTemplateIndex(ctx context.Context, repo TemplateRepository, contractID string, weekStart WeekStartDay) (*TemplateIndex, error) {
	rows, err := repo.TemplatesForContract(ctx, contractID, weekStart)
	if err != nil {
		return nil, &PlatformError{Op: "load weekly templates", Err: err}
	}
	return NewTemplateIndex(ExpandRows(rows)), nil
}

// NewTemplateIndex indexes expanded templates by (week, day).
func NewTemplateIndex(templates []ScheduleTemplate) *TemplateIndex {
	idx := &TemplateIndex{byDay: make(map[templateKey][]ScheduleTemplate)}
	for _, t := range templates {
		k := templateKey{Week: t.Week, Day: t.Day}
		idx.byDay[k] = append(idx.byDay[k], t)
		if t.Week > idx.weekCount {
			idx.weekCount = t.Week
		}
		idx.total++
	}
	for k := range idx.byDay {
		slot := idx.byDay[k]
		sort.Slice(slot, func(i, j int) bool { return slot[i].Shift < slot[j].Shift })
	}
	return idx
}

// Lookup returns the template for (week, day) with the lowest shift number.
func (idx *TemplateIndex) Lookup(week, day int) (ScheduleTemplate, bool) {
	slot := idx.byDay[templateKey{Week: week, Day: day}]
	if len(slot) == 0 {
		return ScheduleTemplate{}, false
	}
	return slot[0], true
}

// LookupShifts returns all templates for (week, day), ordered by shift.
func (idx *TemplateIndex) LookupShifts(week, day int) []ScheduleTemplate {
	return idx.byDay[templateKey{Week: week, Day: day}]
}

// WeekCount returns the highest template week present, which defines the
// chaining pattern length.
func (idx *TemplateIndex) WeekCount() int { return idx.weekCount }

// Empty reports whether no usable templates were loaded.
func (idx *TemplateIndex) Empty() bool { return idx.total == 0 }

// =============================================================================
// ROW EXPANSION
// =============================================================================

// ExpandRows converts raw weekly rows into per-day templates. Deleted rows
// are dropped whole; within a row, only days with a valid working time
// pair are expanded.
func ExpandRows(rows []WeeklyTemplateRow) []ScheduleTemplate {
	var out []ScheduleTemplate
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		for i, dt := range row.Days {
			start, err := ParseWallClock(dt.Start)
			if err != nil {
				continue
			}
			end, err := ParseWallClock(dt.End)
			if err != nil {
				continue
			}
			// start==end==00:00 marks a non-working day.
			if start.IsZero() && end.IsZero() {
				continue
			}
			out = append(out, ScheduleTemplate{
				ContractID:   row.ContractID,
				Week:         row.Week,
				Shift:        row.Shift,
				Day:          i + 1,
				Start:        start,
				End:          end,
				LunchMinutes: row.LunchMinutes,
			})
		}
	}
	return out
}
