package rota

// =============================================================================
// HOLIDAY / LEAVE INDEX - Fast date lookups for one generation period
// =============================================================================

// HolidayLeaveIndex answers per-date holiday and leave questions for one
// fill run. Built once from the month's holidays and the staff member's
// leave periods; read-only afterwards.
type HolidayLeaveIndex struct {
	holidays map[string]Holiday
	leaves   []LeavePeriod
}

// NewHolidayLeaveIndex builds the index. Deleted leave periods are filtered
// out before indexing; holidays are keyed by their normalized date.
func NewHolidayLeaveIndex(holidays []Holiday, leaves []LeavePeriod) *HolidayLeaveIndex {
	idx := &HolidayLeaveIndex{holidays: make(map[string]Holiday, len(holidays))}
	for _, h := range holidays {
		idx.holidays[h.Date.String()] = h
	}
	for _, lp := range leaves {
		if lp.Deleted {
			continue
		}
		idx.leaves = append(idx.leaves, lp)
	}
	return idx
}

// IsHoliday reports an exact date-only match against the holiday table.
func (idx *HolidayLeaveIndex) IsHoliday(d DateOnly) bool {
	_, ok := idx.holidays[d.String()]
	return ok
}

// HolidayFor returns the holiday on the given date, if any.
func (idx *HolidayLeaveIndex) HolidayFor(d DateOnly) (Holiday, bool) {
	h, ok := idx.holidays[d.String()]
	return h, ok
}

// LeaveFor returns the first leave period containing the date, in load
// order, or nil. Overlapping periods have no precedence rule beyond load
// order; see DESIGN.md before changing this.
func (idx *HolidayLeaveIndex) LeaveFor(d DateOnly) *LeavePeriod {
	for i := range idx.leaves {
		if idx.leaves[i].Contains(d) {
			return &idx.leaves[i]
		}
	}
	return nil
}
